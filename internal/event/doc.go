// Package event defines the canonical discriminated event model for agent run
// streams and the classifier that maps raw wire payloads onto it.
package event

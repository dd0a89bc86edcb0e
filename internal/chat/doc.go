// Package chat maintains the conversation transcript for one agent or team
// conversation.
//
// # Overview
//
// The package sits between the stream transport and the UI. Raw stream
// frames are decoded elsewhere; chat consumes classified events and folds
// them into an ordered transcript of user and agent messages.
//
// # Reducer
//
// The Reducer is a pure transition function over State:
//
//	next := reducer.Apply(prev, event)
//
// Every transition returns a new State; prior states stay valid, so a UI can
// diff or replay them. A turn moves through the phases
//
//	idle -> awaiting_first_chunk -> streaming -> completed | errored
//
// Content chunks may be incremental or cumulative; the reducer appends only
// the unseen suffix of each chunk. Tool calls arrive as fragments (started,
// then completed) and are merged additively by identity. A failed turn marks
// its agent message and is discarded once a new turn supersedes it.
//
// # Service
//
// The Service drives whole turns against a TurnRunner:
//
//	svc := chat.NewService(runner, reducer, logger)
//	err := svc.SendMessage(ctx, "hello", time.Now().Unix())
//
// It enforces the single-active-turn rule, pumps the decode/classify/apply
// loop, and fans out State snapshots to subscribers after every transition.
package chat

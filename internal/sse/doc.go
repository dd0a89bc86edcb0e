// Package sse decodes server-sent event frames from arbitrarily chunked
// byte streams. Chunk boundaries carry no meaning: lines are reassembled
// across them, and malformed frames are skipped without disturbing the
// frames that follow.
package sse

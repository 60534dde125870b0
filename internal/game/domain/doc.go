// Package domain defines the per-guild Liar Game session record and its
// lifecycle transitions.
//
// A Session moves CLOSED -> OPEN -> IN_GAME and back to CLOSED on reset.
// While in game, progress is tracked by the topic flag (the secret keyword
// fan-out succeeded) and three monotonic day flags that must be set in
// order. Transitions are pure: they validate against the receiver and
// return a new record, leaving persistence and side effects to callers.
package domain

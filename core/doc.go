// Package core provides the foundational types shared by every model call in
// ModelMesh:
//
//   - RunContext: explicit identifying state (run, session and user ids),
//     observers and the per-run model call limiter, threaded through call
//     options instead of living in global state
//   - CallMetadata: identifying and timing information for one call
//   - Event / Observer: typed call-started and call-finished messages and the
//     sinks that receive them (callbacks or channels)
//   - Abort classification (ErrAborted, IsAbort)
//
// Cancellation is carried by the context.Context passed to every call; a
// cancelled context is an abort, never a failure.
package core

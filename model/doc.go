// Package model defines the provider agnostic capability interfaces and the
// streaming orchestration every model call passes through.
//
// Core pieces:
//   - TextStreamingModel / SpeechStreamingModel: the small closed set of
//     capabilities provider adapters implement
//   - ExecuteStreamCall: opens a provider stream through the retry and
//     throttle layer, turns raw deltas into a typed sequence and reports
//     call-started / call-finished events with timing metadata
//   - StreamText / StreamSpeech: text and duplex speech entry points, each
//     with a Full variant that also exposes the aggregate value
//   - MockTextModel / MockSpeechModel: deterministic models for tests and
//     examples
//
// Providers (e.g. OpenAI, Anthropic) live in sub packages so callers only pay
// for the SDKs they import.
//
// Only opening a stream is retried. Once the connection is established a
// failure terminates the stream; streams cannot be resumed.
package model

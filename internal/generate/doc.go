// Package generate produces example sentences and audio for flashcards.
// Sentences come from a chat completion backend and are cached raw, so a
// deck can be rebuilt without spending tokens; audio comes from a speech
// synthesis backend and is cached as files on disk. All remote calls go
// through per-model rate limiters and circuit breakers.
package generate

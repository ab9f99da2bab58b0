// Package testutil provides stub backends for tests that exercise the
// generation pipeline without touching remote services.
package testutil

import (
	"context"
	"fmt"
	"sync"
)

// StubCompleter replays queued responses, one per Complete call, and
// records the prompts it saw.
type StubCompleter struct {
	mu        sync.Mutex
	Responses []string
	Err       error

	Calls   int
	Models  []string
	Prompts []string
}

// Complete pops the next queued response. It fails once the queue runs dry
// so a test that generates more than it expected notices.
func (s *StubCompleter) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	s.Models = append(s.Models, model)
	s.Prompts = append(s.Prompts, prompt)

	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", fmt.Errorf("stub completer exhausted after %d calls", s.Calls)
	}
	next := s.Responses[0]
	s.Responses = s.Responses[1:]
	return next, nil
}

// SpySynthesizer records every synthesis request and returns fixed audio.
type SpySynthesizer struct {
	mu    sync.Mutex
	Audio []byte
	Err   error

	Calls  int
	Texts  []string
	Voices []string
}

func (s *SpySynthesizer) Speak(ctx context.Context, model, voice, text string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	s.Texts = append(s.Texts, text)
	s.Voices = append(s.Voices, voice)

	if s.Err != nil {
		return nil, s.Err
	}
	if s.Audio == nil {
		return []byte("audio"), nil
	}
	return s.Audio, nil
}

package generate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// OpenAIBackend implements Completer and Synthesizer against the OpenAI
// API. Each operation sits behind its own circuit breaker so a run of
// chat failures does not block speech synthesis, and vice versa.
type OpenAIBackend struct {
	client *openai.Client
	chat   *gobreaker.CircuitBreaker
	speech *gobreaker.CircuitBreaker
}

// NewOpenAIBackend builds a backend for the given API key.
func NewOpenAIBackend(apiKey string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		chat:   newBreaker("openai-chat"),
		speech: newBreaker("openai-speech"),
	}, nil
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
}

// Complete requests a chat completion. Generation stops at the first blank
// line; the expected response is exactly two lines.
func (b *OpenAIBackend) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	result, err := b.chat.Execute(func() (interface{}, error) {
		resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Stop: []string{"\n\n"},
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no completion returned")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Speak renders text as MP3 audio.
func (b *OpenAIBackend) Speak(ctx context.Context, model, voice, text string) ([]byte, error) {
	result, err := b.speech.Execute(func() (interface{}, error) {
		resp, err := b.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(model),
			Input:          text,
			Voice:          openai.SpeechVoice(voice),
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI TTS API error: %w", err)
		}
		defer resp.Close()

		audio, err := io.ReadAll(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio response: %w", err)
		}
		if len(audio) == 0 {
			return nil, fmt.Errorf("no audio data received from OpenAI")
		}
		return audio, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

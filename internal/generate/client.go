package generate

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/PaperclipBadger/gpt-flashcards/internal/cache"
	"github.com/PaperclipBadger/gpt-flashcards/internal/ratelimit"
)

// Defaults for the hosted OpenAI backend.
const (
	DefaultChatModel = "gpt-4-1106-preview"
	DefaultTTSModel  = "tts-1"
)

// DefaultVoices are cycled through so a deck does not sound monotonous.
var DefaultVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// DefaultSystemPrompt instructs the model to emit exactly the two-line
// format the response parser expects.
const DefaultSystemPrompt = "You are a language teacher preparing flashcards. " +
	"Given a word and its meaning, reply with one short example sentence using " +
	"that word, then its English translation on the next line, and nothing else. " +
	"Wrap the word in the sentence, and its counterpart in the translation, in " +
	"curly braces, like {this}."

// Completer produces a chat completion for a system prompt and user prompt.
type Completer interface {
	Complete(ctx context.Context, model, system, prompt string) (string, error)
}

// Synthesizer renders text to spoken audio.
type Synthesizer interface {
	Speak(ctx context.Context, model, voice, text string) ([]byte, error)
}

// Config selects the models and prompt a Client uses. Zero fields fall back
// to the defaults above.
type Config struct {
	ChatModel    string
	TTSModel     string
	SystemPrompt string
	Voices       []string
	Logger       *slog.Logger
}

// Client generates example sentences and audio, caching sentences in
// SQLite and respecting per-model rate limits.
type Client struct {
	cfg       Config
	completer Completer
	synth     Synthesizer
	cache     *cache.Cache
	limits    *ratelimit.Registry
	voice     atomic.Uint64
	logger    *slog.Logger
}

// New wires a Client from its collaborators, applying Config defaults.
func New(cfg Config, completer Completer, synth Synthesizer, sentences *cache.Cache, limits *ratelimit.Registry) *Client {
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = DefaultTTSModel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if len(cfg.Voices) == 0 {
		cfg.Voices = DefaultVoices
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:       cfg,
		completer: completer,
		synth:     synth,
		cache:     sentences,
		limits:    limits,
		logger:    logger,
	}
}

// acquire blocks until the named model has request budget available.
func (c *Client) acquire(ctx context.Context, model string) error {
	return c.limits.Limiter(model, ratelimit.Quota(model)).Acquire(ctx)
}

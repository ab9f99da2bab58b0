package cli

import "github.com/PaperclipBadger/gpt-flashcards/internal/generate"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	CacheDB    string
	MediaDir   string
	DeckName   string
	Tag        string
	SkipAudio  bool
	ListModels bool
	Quiet      bool

	// Generation flags
	Provider     string
	ChatModel    string
	TTSModel     string
	SystemPrompt string
	MaxExamples  int

	// Source deck layout flags
	WordField        string
	TranslationField string
	CommentsField    string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		CacheDB:          "sentences.db",
		MediaDir:         "media",
		Tag:              "d1",
		Provider:         "openai",
		ChatModel:        generate.DefaultChatModel,
		TTSModel:         generate.DefaultTTSModel,
		MaxExamples:      3,
		WordField:        "Polish original",
		TranslationField: "Translation",
		CommentsField:    "Comments",
	}
}

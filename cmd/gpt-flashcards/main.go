package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PaperclipBadger/gpt-flashcards/internal/cache"
	"github.com/PaperclipBadger/gpt-flashcards/internal/cli"
	"github.com/PaperclipBadger/gpt-flashcards/internal/generate"
	"github.com/PaperclipBadger/gpt-flashcards/internal/models"
	"github.com/PaperclipBadger/gpt-flashcards/internal/processor"
	"github.com/PaperclipBadger/gpt-flashcards/internal/ratelimit"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	ctx := cmd.Context()

	// Handle --list-models flag
	if flags.ListModels {
		lister := models.NewLister(cli.GetOpenAIKey())
		return lister.ListAvailableModels(ctx)
	}

	if len(args) != 2 {
		return fmt.Errorf("expected arguments: <package> <output>")
	}

	applyConfig(flags)

	// The OpenAI backend does speech synthesis for every provider, so it
	// is only optional when audio is skipped and Gemini generates.
	var backend *generate.OpenAIBackend
	if flags.Provider == "openai" || !flags.SkipAudio {
		var err error
		backend, err = generate.NewOpenAIBackend(cli.GetOpenAIKey())
		if err != nil {
			return err
		}
	}

	var completer generate.Completer
	switch flags.Provider {
	case "openai":
		completer = backend
	case "gemini":
		gemini, err := generate.NewGeminiCompleter(ctx, cli.GetGeminiKey())
		if err != nil {
			return err
		}
		completer = gemini
	default:
		return fmt.Errorf("unknown provider %q (want openai or gemini)", flags.Provider)
	}

	sentences := cache.Open(flags.CacheDB)
	defer sentences.Close()

	client := generate.New(generate.Config{
		ChatModel:    flags.ChatModel,
		TTSModel:     flags.TTSModel,
		SystemPrompt: flags.SystemPrompt,
	}, completer, backend, sentences, ratelimit.NewRegistry())

	proc := processor.New(processor.Options{
		MediaDir:         flags.MediaDir,
		DeckName:         flags.DeckName,
		Tag:              flags.Tag,
		WordField:        flags.WordField,
		TranslationField: flags.TranslationField,
		CommentsField:    flags.CommentsField,
		MaxExamples:      flags.MaxExamples,
		SkipAudio:        flags.SkipAudio,
		Quiet:            flags.Quiet,
	}, client)

	stats, err := proc.Run(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("\nDone! Wrote %s\n", args[1])
	fmt.Printf("  Sentence notes: %d\n", stats.SentenceNotes)
	fmt.Printf("  Phrase notes:   %d\n", stats.PhraseNotes)
	fmt.Printf("  Copied notes:   %d\n", stats.Passthrough)
	fmt.Printf("  Media files:    %d\n", stats.MediaFiles)
	if len(stats.FailedWords) > 0 {
		fmt.Fprintf(os.Stderr, "Gave up on %d words: %s\n",
			len(stats.FailedWords), strings.Join(stats.FailedWords, ", "))
	}
	return nil
}

// applyConfig folds config file values back into the flags. Flags are
// bound to viper keys, so viper already resolves precedence: explicit
// flag, then config file, then flag default.
func applyConfig(flags *cli.Flags) {
	flags.CacheDB = viper.GetString("cache.database")
	flags.MediaDir = viper.GetString("output.media_dir")
	flags.DeckName = viper.GetString("output.deck_name")
	flags.Tag = viper.GetString("source.tag")
	flags.WordField = viper.GetString("source.word_field")
	flags.TranslationField = viper.GetString("source.translation_field")
	flags.CommentsField = viper.GetString("source.comments_field")
	flags.Provider = viper.GetString("generate.provider")
	flags.ChatModel = viper.GetString("generate.chat_model")
	flags.TTSModel = viper.GetString("generate.tts_model")
	flags.SystemPrompt = viper.GetString("generate.system_prompt")
	flags.MaxExamples = viper.GetInt("generate.max_examples")
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PaperclipBadger/gpt-flashcards/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gpt-flashcards <package> <output>",
		Short: "Augment Anki decks with generated example sentences and audio",
		Long: `gpt-flashcards reads an Anki package, generates example sentences for
tagged vocabulary notes with a chat model, synthesizes audio for sentences
and phrases, and writes an augmented package.

Generated sentences are cached in a local SQLite database, so rerunning on
a grown deck only pays for the new words.

Examples:
  gpt-flashcards polish.apkg polish-examples.apkg
  gpt-flashcards --skip-audio polish.apkg polish-examples.apkg
  gpt-flashcards --provider gemini --chat-model gemini-2.0-flash in.apkg out.apkg
  gpt-flashcards --list-models`,
		Args:    cobra.MaximumNArgs(2),
		Version: internal.Version,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.gpt-flashcards.yaml)")

	// Local flags
	cmd.Flags().StringVar(&flags.CacheDB, "cache-db", flags.CacheDB, "Path of the sentence cache database")
	cmd.Flags().StringVar(&flags.MediaDir, "media-dir", flags.MediaDir, "Directory for generated audio files")
	cmd.Flags().StringVar(&flags.DeckName, "deck-name", "", "Deck name for the output package (default: output file name)")
	cmd.Flags().StringVar(&flags.Tag, "tag", flags.Tag, "Only process source notes carrying this tag")
	cmd.Flags().BoolVar(&flags.SkipAudio, "skip-audio", false, "Skip audio generation")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available OpenAI models for the current API key")
	cmd.Flags().IntVar(&flags.MaxExamples, "max-examples", flags.MaxExamples, "Example sentences per word (1 to 3)")

	// Generation flags
	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "Completion provider: openai or gemini")
	cmd.Flags().StringVar(&flags.ChatModel, "chat-model", flags.ChatModel, "Chat model for sentence generation")
	cmd.Flags().StringVar(&flags.TTSModel, "tts-model", flags.TTSModel, "OpenAI TTS model: tts-1, tts-1-hd")
	cmd.Flags().StringVar(&flags.SystemPrompt, "system-prompt", "", "Override the sentence generation system prompt")

	// Source deck layout flags
	cmd.Flags().StringVar(&flags.WordField, "word-field", flags.WordField, "Source field holding the word or phrase")
	cmd.Flags().StringVar(&flags.TranslationField, "translation-field", flags.TranslationField, "Source field holding the translation")
	cmd.Flags().StringVar(&flags.CommentsField, "comments-field", flags.CommentsField, "Source field holding comments")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("cache.database", cmd.Flags().Lookup("cache-db"))
	viper.BindPFlag("output.media_dir", cmd.Flags().Lookup("media-dir"))
	viper.BindPFlag("output.deck_name", cmd.Flags().Lookup("deck-name"))
	viper.BindPFlag("source.tag", cmd.Flags().Lookup("tag"))
	viper.BindPFlag("source.word_field", cmd.Flags().Lookup("word-field"))
	viper.BindPFlag("source.translation_field", cmd.Flags().Lookup("translation-field"))
	viper.BindPFlag("source.comments_field", cmd.Flags().Lookup("comments-field"))
	viper.BindPFlag("generate.provider", cmd.Flags().Lookup("provider"))
	viper.BindPFlag("generate.chat_model", cmd.Flags().Lookup("chat-model"))
	viper.BindPFlag("generate.tts_model", cmd.Flags().Lookup("tts-model"))
	viper.BindPFlag("generate.system_prompt", cmd.Flags().Lookup("system-prompt"))
	viper.BindPFlag("generate.max_examples", cmd.Flags().Lookup("max-examples"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".gpt-flashcards" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".gpt-flashcards")
	}

	// Environment variables
	viper.SetEnvPrefix("GPT_FLASHCARDS")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("openai.api_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}

	return viper.GetString("gemini.api_key")
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PaperclipBadger/gpt-flashcards/internal"
	"github.com/PaperclipBadger/gpt-flashcards/internal/anki"
	"github.com/PaperclipBadger/gpt-flashcards/internal/dump"
)

var (
	outputDir string
	deckName  string
)

var rootCmd = &cobra.Command{
	Use:   "dumpdeck <package>",
	Short: "Dump an Anki package's notes to CSV and YAML",
	Long: `dumpdeck extracts the notes of an Anki package into one CSV file per
note type plus a single YAML view of the whole deck, for inspection or
spreadsheet editing. The output directory is recreated on every run.`,
	Args:    cobra.ExactArgs(1),
	Version: internal.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		collection, err := anki.ReadPackage(args[0])
		if err != nil {
			return err
		}
		if deckName != "" {
			collection, err = dump.FilterDeck(collection, deckName)
			if err != nil {
				return err
			}
		}
		if err := dump.Dump(collection, outputDir); err != nil {
			return err
		}
		fmt.Printf("Dumped %d notes to %s\n", len(collection.Notes), outputDir)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "deck", "Output directory")
	rootCmd.Flags().StringVar(&deckName, "deck", "", "Dump only the named deck's notes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

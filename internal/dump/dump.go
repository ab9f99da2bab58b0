// Package dump exports a collection's notes to files for inspection or
// spreadsheet editing: one CSV per note type, plus a single YAML view of
// the whole deck.
package dump

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PaperclipBadger/gpt-flashcards/internal/anki"
	"github.com/PaperclipBadger/gpt-flashcards/internal/sanitize"
)

// Dump writes the collection into dir, recreating it from scratch.
func Dump(collection *anki.Collection, dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear dump directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}

	if err := WriteCSV(collection, dir); err != nil {
		return err
	}
	return WriteYAML(collection, filepath.Join(dir, "deck.yaml"))
}

// FilterDeck narrows the collection to the notes whose cards belong to the
// named deck.
func FilterDeck(collection *anki.Collection, deckName string) (*anki.Collection, error) {
	deck, err := collection.DeckByName(deckName)
	if err != nil {
		return nil, err
	}

	keep := make(map[int64]bool)
	for _, card := range deck.Cards {
		keep[card.Note.ID] = true
	}

	var notes []*anki.Note
	for _, note := range collection.Notes {
		if keep[note.ID] {
			notes = append(notes, note)
		}
	}
	return &anki.Collection{Models: collection.Models, Notes: notes, Decks: collection.Decks}, nil
}

// WriteCSV writes one <model name>.csv per note type into dir. The header
// row is the model's field names plus a trailing tags column.
func WriteCSV(collection *anki.Collection, dir string) error {
	byModel := notesByModel(collection)

	for _, model := range collection.Models {
		notes := byModel[model.ID]
		if len(notes) == 0 {
			continue
		}

		path := filepath.Join(dir, sanitize.ToFilename(model.Name)+".csv")
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}

		w := csv.NewWriter(f)
		header := append(model.FieldNames(), "tags")
		if err := w.Write(header); err != nil {
			f.Close()
			return fmt.Errorf("failed to write CSV header: %w", err)
		}

		for _, note := range notes {
			row := make([]string, 0, len(header))
			for _, name := range model.FieldNames() {
				row = append(row, note.Field(name))
			}
			row = append(row, strings.Join(note.Tags, ", "))
			if err := w.Write(row); err != nil {
				f.Close()
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}

		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("failed to flush %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// YAML view structs. Fields stay an ordered list so the dump round-trips
// the model's field order.

type yamlField struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type yamlNote struct {
	Model  string      `yaml:"model"`
	Fields []yamlField `yaml:"fields"`
	Tags   []string    `yaml:"tags,omitempty"`
}

type yamlDeck struct {
	Notes []yamlNote `yaml:"notes"`
}

// WriteYAML writes every note of the collection into one YAML file.
func WriteYAML(collection *anki.Collection, path string) error {
	deck := yamlDeck{}

	for _, note := range collection.Notes {
		n := yamlNote{Model: note.Model.Name, Tags: note.Tags}
		for _, name := range note.Model.FieldNames() {
			n.Fields = append(n.Fields, yamlField{Name: name, Value: note.Field(name)})
		}
		deck.Notes = append(deck.Notes, n)
	}

	data, err := yaml.Marshal(&deck)
	if err != nil {
		return fmt.Errorf("failed to encode deck YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func notesByModel(collection *anki.Collection) map[int64][]*anki.Note {
	byModel := make(map[int64][]*anki.Note)
	for _, note := range collection.Notes {
		byModel[note.Model.ID] = append(byModel[note.Model.ID], note)
	}
	return byModel
}

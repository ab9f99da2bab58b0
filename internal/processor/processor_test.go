package processor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PaperclipBadger/gpt-flashcards/internal/anki"
	"github.com/PaperclipBadger/gpt-flashcards/internal/cache"
	"github.com/PaperclipBadger/gpt-flashcards/internal/generate"
	"github.com/PaperclipBadger/gpt-flashcards/internal/ratelimit"
	"github.com/PaperclipBadger/gpt-flashcards/internal/sanitize"
	"github.com/PaperclipBadger/gpt-flashcards/internal/testutil"
)

var sourceNoteType = &anki.NoteType{
	ID:     555444333,
	Name:   "Source",
	Fields: []string{"Polish original", "Translation", "Comments"},
	Templates: []anki.Template{
		{Name: "Card 1", QFmt: "{{Polish original}}", AFmt: "{{Translation}}"},
	},
}

type sourceNote struct {
	fields []string
	tags   []string
}

func writeSourcePackage(t *testing.T, notes []sourceNote) string {
	t.Helper()

	pkg := anki.NewPackage(111222333, "Source deck")
	pkg.AddModel(sourceNoteType)
	for _, n := range notes {
		if err := pkg.AddNote(sourceNoteType, n.fields, n.tags); err != nil {
			t.Fatalf("AddNote failed: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "source.apkg")
	if err := pkg.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func newTestProcessor(t *testing.T, opts Options, completer generate.Completer, synth generate.Synthesizer) *Processor {
	t.Helper()

	db := cache.Open(filepath.Join(t.TempDir(), "sentences.db"))
	t.Cleanup(func() { db.Close() })

	client := generate.New(
		generate.Config{Logger: slog.New(slog.DiscardHandler)},
		completer, synth, db, ratelimit.NewRegistryWindow(time.Millisecond),
	)

	opts.Quiet = true
	if opts.MediaDir == "" {
		opts.MediaDir = filepath.Join(t.TempDir(), "media")
	}
	return New(opts, client)
}

func findNote(t *testing.T, col *anki.Collection, field, value string) *anki.Note {
	t.Helper()
	for _, n := range col.Notes {
		if n.Field(field) == value {
			return n
		}
	}
	t.Fatalf("no note with %s = %q", field, value)
	return nil
}

func TestRunGeneratesSentenceNote(t *testing.T) {
	input := writeSourcePackage(t, []sourceNote{
		{fields: []string{"kot", "cat", "a pet"}, tags: []string{"d1", "noun"}},
	})

	completer := &testutil.StubCompleter{Responses: []string{
		"Mam czarnego {kota}.\nI have a black {cat}.",
	}}
	synth := &testutil.SpySynthesizer{}
	p := newTestProcessor(t, Options{MaxExamples: 1}, completer, synth)

	output := filepath.Join(t.TempDir(), "out.apkg")
	stats, err := p.Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.SentenceNotes != 1 {
		t.Errorf("SentenceNotes = %d, want 1", stats.SentenceNotes)
	}

	col, err := anki.ReadPackage(output)
	if err != nil {
		t.Fatalf("ReadPackage failed: %v", err)
	}
	note := findNote(t, col, "Word", "kot")

	checks := map[string]string{
		"Meaning":      "cat",
		"Comments":     "a pet",
		"Sentence0":    "Mam czarnego <b>kota</b>.",
		"Voice0":       "[sound:kot0.mp3]",
		"Cloze0":       "Mam czarnego <b>...</b>.",
		"Conjugation0": "kota",
		"Translation0": "I have a black <b>cat</b>.",
		"Sentence1":    "",
		"Voice1":       "",
	}
	for field, want := range checks {
		if got := note.Field(field); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
	if !note.HasTag("noun") {
		t.Errorf("tags = %v, want source tags carried over", note.Tags)
	}

	audioPath := filepath.Join(p.opts.MediaDir, "kot0.mp3")
	if _, err := os.Stat(audioPath); err != nil {
		t.Errorf("audio file not written: %v", err)
	}
	if synth.Calls != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.Calls)
	}
}

func TestRunGeneratesPhraseNote(t *testing.T) {
	input := writeSourcePackage(t, []sourceNote{
		{fields: []string{"dzień dobry", "good morning", ""}, tags: []string{"d1", "expression"}},
	})

	synth := &testutil.SpySynthesizer{}
	p := newTestProcessor(t, Options{}, &testutil.StubCompleter{}, synth)

	output := filepath.Join(t.TempDir(), "out.apkg")
	stats, err := p.Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.PhraseNotes != 1 {
		t.Errorf("PhraseNotes = %d, want 1", stats.PhraseNotes)
	}

	col, err := anki.ReadPackage(output)
	if err != nil {
		t.Fatalf("ReadPackage failed: %v", err)
	}
	note := findNote(t, col, "Original", "dzień dobry")

	wantVoice := "[sound:" + sanitize.ToFilename("dzień dobry") + ".mp3]"
	if got := note.Field("Voice"); got != wantVoice {
		t.Errorf("Voice = %q, want %q", got, wantVoice)
	}
	if got := note.Field("Translation"); got != "good morning" {
		t.Errorf("Translation = %q", got)
	}
	if synth.Calls != 1 {
		t.Errorf("synthesizer called %d times, want 1", synth.Calls)
	}
	if synth.Texts[0] != "dzień dobry" {
		t.Errorf("spoken text = %q", synth.Texts[0])
	}
}

func TestRunCopiesUnclassifiedNotes(t *testing.T) {
	input := writeSourcePackage(t, []sourceNote{
		{fields: []string{"jakiś tekst", "some text", "note"}, tags: []string{"d1"}},
	})

	p := newTestProcessor(t, Options{}, &testutil.StubCompleter{}, &testutil.SpySynthesizer{})

	output := filepath.Join(t.TempDir(), "out.apkg")
	stats, err := p.Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Passthrough != 1 {
		t.Errorf("Passthrough = %d, want 1", stats.Passthrough)
	}

	col, err := anki.ReadPackage(output)
	if err != nil {
		t.Fatalf("ReadPackage failed: %v", err)
	}
	note := findNote(t, col, "Original", "jakiś tekst")
	if got := note.Field("Voice"); got != "" {
		t.Errorf("Voice = %q, want empty for copied note", got)
	}
}

func TestRunIgnoresUntaggedNotes(t *testing.T) {
	input := writeSourcePackage(t, []sourceNote{
		{fields: []string{"kot", "cat", ""}, tags: []string{"noun"}},
	})

	completer := &testutil.StubCompleter{}
	p := newTestProcessor(t, Options{}, completer, &testutil.SpySynthesizer{})

	output := filepath.Join(t.TempDir(), "out.apkg")
	stats, err := p.Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.SentenceNotes+stats.PhraseNotes+stats.Passthrough != 0 {
		t.Errorf("stats = %+v, want nothing processed", stats)
	}

	col, err := anki.ReadPackage(output)
	if err != nil {
		t.Fatalf("ReadPackage failed: %v", err)
	}
	if len(col.Notes) != 0 {
		t.Errorf("got %d notes, want 0", len(col.Notes))
	}
}

func TestRunSkipAudio(t *testing.T) {
	input := writeSourcePackage(t, []sourceNote{
		{fields: []string{"kot", "cat", ""}, tags: []string{"d1", "noun"}},
	})

	completer := &testutil.StubCompleter{Responses: []string{
		"Mam {kota}.\nI have a {cat}.",
	}}
	synth := &testutil.SpySynthesizer{}
	p := newTestProcessor(t, Options{MaxExamples: 1, SkipAudio: true}, completer, synth)

	output := filepath.Join(t.TempDir(), "out.apkg")
	stats, err := p.Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if synth.Calls != 0 {
		t.Errorf("synthesizer called %d times with SkipAudio, want 0", synth.Calls)
	}
	if stats.MediaFiles != 0 {
		t.Errorf("MediaFiles = %d, want 0", stats.MediaFiles)
	}

	col, err := anki.ReadPackage(output)
	if err != nil {
		t.Fatalf("ReadPackage failed: %v", err)
	}
	note := findNote(t, col, "Word", "kot")
	if got := note.Field("Voice0"); got != "" {
		t.Errorf("Voice0 = %q, want empty with SkipAudio", got)
	}
}

func TestRunRecordsExhaustedWords(t *testing.T) {
	input := writeSourcePackage(t, []sourceNote{
		{fields: []string{"kot", "cat", ""}, tags: []string{"d1", "noun"}},
	})

	// Responses never mention the word, so every attempt fails repair.
	completer := &testutil.StubCompleter{Responses: []string{
		"Pada deszcz.\nIt is raining.",
		"Świeci słońce.\nThe sun is shining.",
		"Jest zimno.\nIt is cold.",
	}}
	p := newTestProcessor(t, Options{MaxExamples: 1}, completer, &testutil.SpySynthesizer{})

	output := filepath.Join(t.TempDir(), "out.apkg")
	stats, err := p.Run(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(stats.FailedWords) != 1 || stats.FailedWords[0] != "kot" {
		t.Errorf("FailedWords = %v, want [kot]", stats.FailedWords)
	}
	if stats.SentenceNotes != 0 {
		t.Errorf("SentenceNotes = %d, want 0", stats.SentenceNotes)
	}

	// The output package is still written, just without the failed word.
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output package not written: %v", err)
	}
}

func TestExtractWords(t *testing.T) {
	p := newTestProcessor(t, Options{}, &testutil.StubCompleter{}, &testutil.SpySynthesizer{})

	tests := []struct {
		name  string
		field string
		want  []string
		ok    bool
	}{
		{"plain word", "kot", []string{"kot"}, true},
		{"html wrapped", "<i>kot</i>", []string{"kot"}, true},
		{"slash joined", "pies/psa", []string{"pies/psa"}, true},
		{"trailing parenthetical", "kot (animal)", []string{"kot"}, true},
		{"single rune word", "w", nil, false},
		{"empty", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note := &anki.Note{
				Model: &anki.Model{Fields: []anki.Field{
					{Name: "Polish original"}, {Name: "Translation"}, {Name: "Comments"},
				}},
				FieldValues: []string{tt.field, "", ""},
			}
			got, ok := p.extractWords(note)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if len(got) != len(tt.want) || got[0] != tt.want[0] {
				t.Errorf("words = %v, want %v", got, tt.want)
			}
		})
	}
}

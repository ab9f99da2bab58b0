// Package processor turns a source Anki package into an augmented one:
// vocabulary notes gain generated example sentences with audio, phrases
// gain audio, everything else is carried over unchanged.
package processor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/PaperclipBadger/gpt-flashcards/internal/anki"
	"github.com/PaperclipBadger/gpt-flashcards/internal/batch"
	"github.com/PaperclipBadger/gpt-flashcards/internal/cloze"
	"github.com/PaperclipBadger/gpt-flashcards/internal/generate"
	"github.com/PaperclipBadger/gpt-flashcards/internal/sanitize"
	"golang.org/x/sync/errgroup"
)

// Tags that route a note to sentence generation.
var sentenceTags = []string{
	"noun", "particle", "verb", "adjective", "adverb",
	"conjunction", "preposition", "interjection", "pronoun", "numeral",
}

// Tags that route a note to phrase audio.
var phraseTags = []string{"expression", "sentence", "phrase"}

// wordRe extracts the word list from the source word field: an optional
// HTML tag, then either a slash-joined form or a comma-separated list,
// with any trailing parenthetical ignored.
var wordRe = regexp.MustCompile(`^(?:<[\p{L}\p{N}_]+>)?([\p{L}\p{N}_/]+|[\p{L}\p{N}_]+(?:,\s+[\p{L}\p{N}_]+)*?)`)

// Options configure a processing run. Zero-value fields take the defaults
// of the source deck layout this tool was built for.
type Options struct {
	MediaDir string // where generated audio lands, default "media"
	DeckName string // default: output file name without extension
	Tag      string // notes without this tag are ignored, default "d1"

	WordField        string // default "Polish original"
	TranslationField string // default "Translation"
	CommentsField    string // default "Comments"

	MaxExamples int // example sentences per word, capped at MaxExamples
	SkipAudio   bool
	Quiet       bool
}

// Stats summarizes what a run produced.
type Stats struct {
	SentenceNotes int
	PhraseNotes   int
	Passthrough   int
	MediaFiles    int
	FailedWords   []string
}

// Processor drives generation for one package.
type Processor struct {
	opts   Options
	client *generate.Client

	mu       sync.Mutex
	pkg      *anki.Package
	examples *anki.NoteType
	phrases  *anki.NoteType
	stats    Stats
}

// New builds a Processor, applying Options defaults.
func New(opts Options, client *generate.Client) *Processor {
	if opts.MediaDir == "" {
		opts.MediaDir = "media"
	}
	if opts.Tag == "" {
		opts.Tag = "d1"
	}
	if opts.WordField == "" {
		opts.WordField = "Polish original"
	}
	if opts.TranslationField == "" {
		opts.TranslationField = "Translation"
	}
	if opts.CommentsField == "" {
		opts.CommentsField = "Comments"
	}
	if opts.MaxExamples < 1 || opts.MaxExamples > MaxExamples {
		opts.MaxExamples = MaxExamples
	}
	return &Processor{opts: opts, client: client}
}

// Run reads the package at inputPath, generates the augmented notes and
// writes them to outputPath.
func (p *Processor) Run(ctx context.Context, inputPath, outputPath string) (Stats, error) {
	collection, err := anki.ReadPackage(inputPath)
	if err != nil {
		return Stats{}, err
	}

	deckName := p.opts.DeckName
	if deckName == "" {
		base := filepath.Base(outputPath)
		deckName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	p.pkg = anki.NewPackage(DeckID, deckName)
	p.examples = ExamplesNoteType()
	p.phrases = PhraseNoteType()
	p.pkg.AddModel(p.examples)
	p.pkg.AddModel(p.phrases)
	p.stats = Stats{}

	tasks := p.collectTasks(collection)
	p.printf("%d generation tasks for %d source notes\n", len(tasks), len(collection.Notes))

	progress := func(done, total int, name string) {
		p.printf("  [%d/%d] %s\n", done, total, name)
	}
	if err := batch.Run(ctx, tasks, progress); err != nil {
		return p.stats, err
	}

	sort.Strings(p.stats.FailedWords)
	if err := p.pkg.WriteFile(outputPath); err != nil {
		return p.stats, err
	}
	p.printf("wrote %d notes to %s\n", p.pkg.NoteCount(), outputPath)
	return p.stats, nil
}

// collectTasks routes each selected source note: tagged vocabulary with a
// parseable word field fans out into one sentence task per word, tagged
// phrases get an audio task, and everything else is copied over directly.
func (p *Processor) collectTasks(collection *anki.Collection) []batch.Task {
	var tasks []batch.Task

	for _, note := range collection.Notes {
		if !note.HasTag(p.opts.Tag) {
			continue
		}
		note := note

		if words, ok := p.extractWords(note); ok && note.HasAnyTag(sentenceTags...) {
			for _, word := range words {
				word := word
				tasks = append(tasks, batch.Task{
					Name: word,
					Run: func(ctx context.Context) error {
						return p.makeSentenceNote(ctx, word, note)
					},
				})
			}
			continue
		}

		if note.HasAnyTag(phraseTags...) {
			tasks = append(tasks, batch.Task{
				Name: note.Field(p.opts.WordField),
				Run: func(ctx context.Context) error {
					return p.makePhraseNote(ctx, note)
				},
			})
			continue
		}

		p.passThrough(note)
	}

	return tasks
}

// extractWords pulls the word list out of a note's word field. Single-rune
// words disqualify the whole note, matching how particles are kept out of
// sentence generation.
func (p *Processor) extractWords(note *anki.Note) ([]string, bool) {
	m := wordRe.FindStringSubmatch(note.Field(p.opts.WordField))
	if m == nil {
		return nil, false
	}

	words := strings.Split(m[1], ", ")
	for _, w := range words {
		if len([]rune(w)) == 1 {
			return nil, false
		}
	}
	return words, true
}

// makeSentenceNote generates example sentences and audio for one word and
// adds an examples note carrying them. A word whose generation attempts
// are exhausted is recorded and skipped rather than failing the run.
func (p *Processor) makeSentenceNote(ctx context.Context, word string, source *anki.Note) error {
	meaning := source.Field(p.opts.TranslationField)
	comments := source.Field(p.opts.CommentsField)

	pairs, reasons, err := p.client.ExampleSentences(ctx, word, meaning, p.opts.MaxExamples)
	var exhausted *generate.ExhaustedError
	if errors.As(err, &exhausted) {
		p.printf("  giving up on %q: %v\n", word, err)
		p.mu.Lock()
		p.stats.FailedWords = append(p.stats.FailedWords, word)
		p.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}
	for _, reason := range reasons {
		p.printf("  recovered for %q: %s\n", word, reason)
	}

	type example struct {
		sentence    *cloze.Cloze
		translation *cloze.Cloze
		audioPath   string
	}
	examples := make([]example, len(pairs))
	for i, pair := range pairs {
		examples[i] = example{
			sentence:    cloze.Parse(pair.Sentence),
			translation: cloze.Parse(pair.Translation),
			audioPath: filepath.Join(p.opts.MediaDir,
				fmt.Sprintf("%s%d.mp3", sanitize.ToFilename(word), i)),
		}
	}

	if !p.opts.SkipAudio {
		g, ctx := errgroup.WithContext(ctx)
		for _, ex := range examples {
			ex := ex
			g.Go(func() error {
				return p.client.Synthesize(ctx, ex.sentence.Sentence(), ex.audioPath)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	fields := []string{word, meaning, comments}
	for _, ex := range examples {
		voice := ""
		if !p.opts.SkipAudio {
			voice = fmt.Sprintf("[sound:%s]", filepath.Base(ex.audioPath))
		}
		fields = append(fields,
			ex.sentence.Sentence(),
			voice,
			ex.sentence.Masked(),
			strings.Join(ex.sentence.Deletions, ", "),
			ex.translation.Sentence(),
		)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pkg.AddNote(p.examples, fields, source.Tags); err != nil {
		return err
	}
	p.stats.SentenceNotes++
	if !p.opts.SkipAudio {
		for _, ex := range examples {
			p.pkg.AddMedia(ex.audioPath)
			p.stats.MediaFiles++
		}
	}
	return nil
}

// makePhraseNote synthesizes audio for a whole phrase and adds a phrase
// note referencing it.
func (p *Processor) makePhraseNote(ctx context.Context, source *anki.Note) error {
	original := source.Field(p.opts.WordField)
	translation := source.Field(p.opts.TranslationField)
	comments := source.Field(p.opts.CommentsField)

	voice := ""
	audioPath := filepath.Join(p.opts.MediaDir, sanitize.ToFilename(original)+".mp3")
	if !p.opts.SkipAudio {
		if err := p.client.Synthesize(ctx, original, audioPath); err != nil {
			return err
		}
		voice = fmt.Sprintf("[sound:%s]", filepath.Base(audioPath))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pkg.AddNote(p.phrases, []string{original, voice, translation, comments}, source.Tags); err != nil {
		return err
	}
	p.stats.PhraseNotes++
	if !p.opts.SkipAudio {
		p.pkg.AddMedia(audioPath)
		p.stats.MediaFiles++
	}
	return nil
}

// passThrough copies a note that needs no generation into the output as a
// phrase note without audio.
func (p *Processor) passThrough(note *anki.Note) {
	fields := []string{
		note.Field(p.opts.WordField),
		"",
		note.Field(p.opts.TranslationField),
		note.Field(p.opts.CommentsField),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pkg.AddNote(p.phrases, fields, note.Tags); err != nil {
		p.printf("  Warning: failed to copy note %d: %v\n", note.ID, err)
		return
	}
	p.stats.Passthrough++
}

func (p *Processor) printf(format string, args ...interface{}) {
	if p.opts.Quiet {
		return
	}
	fmt.Printf(format, args...)
}

package processor

import (
	"fmt"

	"github.com/PaperclipBadger/gpt-flashcards/internal/anki"
)

// Stable IDs so re-importing an updated package updates existing notes.
const (
	ExamplesModelID = 1205523417
	PhraseModelID   = 1938227838
	DeckID          = 1557327995
)

// MaxExamples is how many example sentences the examples note type has
// field slots for.
const MaxExamples = 3

const cardCSS = `.card {
    font-family: serif;
    font-size: 25px;
    text-align: center;
    color: black;
    background-color: white;
}
`

// ExamplesNoteType holds a word plus up to MaxExamples generated example
// sentences, each with its audio, masked form, deletions and translation.
func ExamplesNoteType() *anki.NoteType {
	fields := []string{"Word", "Meaning", "Comments"}
	templates := []anki.Template{
		{
			Name: "Meaning",
			QFmt: "{{Word}}",
			AFmt: "{{FrontSide}}<hr id=answer>{{Meaning}}<br>{{Comments}}",
		},
	}
	for i := 0; i < MaxExamples; i++ {
		fields = append(fields,
			fmt.Sprintf("Sentence%d", i),
			fmt.Sprintf("Voice%d", i),
			fmt.Sprintf("Cloze%d", i),
			fmt.Sprintf("Conjugation%d", i),
			fmt.Sprintf("Translation%d", i),
		)
		templates = append(templates, anki.Template{
			Name: fmt.Sprintf("Example Sentence %d", i),
			QFmt: fmt.Sprintf("{{#Sentence%d}}{{Voice%d}} {{Sentence%d}}{{/Sentence%d}}", i, i, i, i),
			AFmt: fmt.Sprintf("{{FrontSide}}\n<hr id=answer>\n{{Word}}—{{Meaning}}\n<br>\n{{Translation%d}}", i),
		})
	}
	return &anki.NoteType{
		ID:        ExamplesModelID,
		Name:      "Word with examples",
		Fields:    fields,
		Templates: templates,
		CSS:       cardCSS,
	}
}

// PhraseNoteType holds a phrase, its audio and its translation.
func PhraseNoteType() *anki.NoteType {
	return &anki.NoteType{
		ID:     PhraseModelID,
		Name:   "Phrase",
		Fields: []string{"Original", "Voice", "Translation", "Comments"},
		Templates: []anki.Template{
			{
				Name: "Meaning",
				QFmt: "{{Voice}} {{Original}}",
				AFmt: "{{FrontSide}}<hr id=answer>{{Translation}}<br>{{Comments}}",
			},
		},
		CSS: cardCSS,
	}
}

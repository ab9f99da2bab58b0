// Package cloze parses sentences with brace-marked deletions, the format
// the generation service is prompted to produce. A parsed Cloze renders
// either as the answer side of a card (deletions emphasised) or the
// question side (deletions collapsed into a blank).
package cloze

import (
	"regexp"
	"strings"
	"sync"
)

// Placeholder is substituted for deletions when rendering the question side.
const Placeholder = "..."

// deletionRe matches one brace-delimited deletion span.
var deletionRe = regexp.MustCompile(`\{([^}]*)\}`)

// Cloze is a sentence split around its deletion markers. Context holds the
// N+1 literal fragments between markers and Deletions the N marked spans.
// A Cloze is immutable once parsed; the derived views are memoized.
type Cloze struct {
	Context   []string
	Deletions []string

	maskedOnce   sync.Once
	masked       string
	sentenceOnce sync.Once
	sentence     string
}

// Parse scans raw left to right for {deletion} spans. Text between spans
// (and before the first and after the last) becomes context fragments.
// A string without any markers parses to a single fragment and no deletions.
func Parse(raw string) *Cloze {
	var context, deletions []string

	i := 0
	for _, m := range deletionRe.FindAllStringSubmatchIndex(raw, -1) {
		context = append(context, raw[i:m[0]])
		deletions = append(deletions, raw[m[2]:m[3]])
		i = m[1]
	}
	context = append(context, raw[i:])

	return &Cloze{Context: context, Deletions: deletions}
}

// HasDeletion reports whether raw contains at least one deletion marker.
func HasDeletion(raw string) bool {
	return deletionRe.MatchString(raw)
}

// Fill renders the sentence with the given values substituted for the
// deletions, each wrapped in emphasis markup. Values are reused cyclically
// when there are fewer values than deletion slots; surplus values are
// dropped. With no values every slot receives the placeholder. Output
// alternates context fragments and fillers, starting and ending with a
// fragment.
func (c *Cloze) Fill(values ...string) string {
	if len(values) == 0 {
		values = []string{Placeholder}
	}

	var b strings.Builder
	for i, fragment := range c.Context {
		b.WriteString(fragment)
		if i < len(c.Context)-1 {
			b.WriteString("<b>")
			b.WriteString(values[i%len(values)])
			b.WriteString("</b>")
		}
	}
	return b.String()
}

// Sentence is the answer-side rendering: the original text with each
// deletion restored and emphasised.
func (c *Cloze) Sentence() string {
	c.sentenceOnce.Do(func() {
		c.sentence = c.Fill(c.Deletions...)
	})
	return c.sentence
}

// Masked is the question-side rendering: every deletion replaced by the
// placeholder.
func (c *Cloze) Masked() string {
	c.maskedOnce.Do(func() {
		c.masked = c.Fill()
	})
	return c.masked
}

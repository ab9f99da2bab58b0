package generate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PaperclipBadger/gpt-flashcards/internal/cloze"
	"github.com/PaperclipBadger/gpt-flashcards/internal/sanitize"
)

// maxAttempts bounds how often a word is regenerated after an invalid
// response before we give up on it.
const maxAttempts = 3

// responseRe splits a completion into its sentence and translation lines.
// Each group stays on a single line, so a chattier response does not smuggle
// extra lines into the translation.
var responseRe = regexp.MustCompile(`\A\s*(.+?)\n+(.+?)\s*\z`)

// alternativesRe splits a word field that lists several acceptable forms.
var alternativesRe = regexp.MustCompile(`, |; |、`)

// SentencePair is one generated example: the sentence in the target
// language and its translation, both carrying brace-marked deletions.
type SentencePair struct {
	Sentence    string
	Translation string
}

// ExampleSentences returns n example sentences for word, drawing on the
// cache first and generating the rest. Responses that fail validation
// invalidate the word's cache entries and trigger a retry; after
// maxAttempts the accumulated reasons come back inside an ExhaustedError.
// The returned reasons slice records recoverable failures even on success.
func (c *Client) ExampleSentences(ctx context.Context, word, meaning string, n int) ([]SentencePair, []string, error) {
	var reasons []string

	for attempt := 0; attempt < maxAttempts; attempt++ {
		rows, err := c.rawRows(ctx, word, meaning, n)
		if err != nil {
			return nil, reasons, err
		}

		pairs, err := c.validateRows(word, meaning, rows)
		if err == nil {
			return pairs, reasons, nil
		}
		if !retryable(err) {
			return nil, reasons, err
		}

		reasons = append(reasons, err.Error())
		c.logger.Warn("regenerating after invalid response", "word", word, "reason", err)
		if err := c.cache.Invalidate(word); err != nil {
			return nil, reasons, fmt.Errorf("invalidating %q: %w", word, err)
		}
	}

	return nil, reasons, &ExhaustedError{Word: word, Attempts: maxAttempts, Reasons: reasons}
}

// rawRows returns n raw completion responses for word: cached rows first,
// fresh ones after, each cached as soon as it arrives.
func (c *Client) rawRows(ctx context.Context, word, meaning string, n int) ([]string, error) {
	rows, err := c.cache.Get(word)
	if err != nil {
		return nil, err
	}
	if len(rows) > n {
		rows = rows[:n]
	}

	for len(rows) < n {
		raw, err := c.complete(ctx, word, meaning)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Put(word, []string{raw}); err != nil {
			return nil, err
		}
		rows = append(rows, raw)
	}
	return rows, nil
}

func (c *Client) complete(ctx context.Context, word, meaning string) (string, error) {
	if err := c.acquire(ctx, c.cfg.ChatModel); err != nil {
		return "", err
	}

	prompt := word
	if meaning != "" {
		prompt = fmt.Sprintf("%s (%s)", word, meaning)
	}
	raw, err := c.completer.Complete(ctx, c.cfg.ChatModel, c.cfg.SystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("completion for %q: %w", word, err)
	}
	return strings.TrimSpace(raw), nil
}

// validateRows parses raw cached rows into sentence pairs, repairing
// missing deletion markers where the word at least appears literally.
func (c *Client) validateRows(word, meaning string, rows []string) ([]SentencePair, error) {
	pairs := make([]SentencePair, 0, len(rows))
	for _, row := range rows {
		m := responseRe.FindStringSubmatch(row)
		if m == nil {
			return nil, &MalformedResponseError{Response: row}
		}
		sentence, translation := m[1], m[2]

		if !cloze.HasDeletion(sentence) {
			repaired, err := encloze(sentence, plain(word))
			if err != nil {
				return nil, err
			}
			sentence = repaired
		}

		if !cloze.HasDeletion(translation) {
			repaired, err := encloze(translation, plain(meaning))
			if err != nil {
				// A translation without markers still reads fine on a card.
				c.logger.Warn("translation lacks deletion markers", "word", word, "translation", translation)
			} else {
				translation = repaired
			}
		}

		pairs = append(pairs, SentencePair{Sentence: sentence, Translation: translation})
	}
	return pairs, nil
}

// plain reduces a note field to bare text so its literal forms can be
// searched for in a generated sentence.
func plain(field string) string {
	return sanitize.StripParenthetical(sanitize.StripHTML(sanitize.StripRuby(field)))
}

// encloze wraps the first literal occurrence of each listed form of word in
// braces; at least one form must occur. The match is case-insensitive; the
// text keeps its own casing.
func encloze(text, word string) (string, error) {
	matched := false
	for _, alt := range alternativesRe.Split(word, -1) {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(alt))
		if err != nil {
			continue
		}
		if loc := re.FindStringIndex(text); loc != nil {
			text = text[:loc[0]] + "{" + text[loc[0]:loc[1]] + "}" + text[loc[1]:]
			matched = true
		}
	}
	if !matched {
		return "", &RepairError{Word: word, Sentence: text}
	}
	return text, nil
}

func retryable(err error) bool {
	var malformed *MalformedResponseError
	var repair *RepairError
	return errors.As(err, &malformed) || errors.As(err, &repair)
}

package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PaperclipBadger/gpt-flashcards/internal/sanitize"
)

var braceStripper = strings.NewReplacer("{", "", "}", "")

// Synthesize renders text as speech into the file at path. An existing
// file is left alone, which makes reruns free; voices rotate per call so
// consecutive cards do not share one.
func (c *Client) Synthesize(ctx context.Context, text, path string) error {
	if _, err := os.Stat(path); err == nil {
		c.logger.Debug("audio already exists", "path", path)
		return nil
	}

	spoken := strings.TrimSpace(braceStripper.Replace(sanitize.StripHTML(text)))
	if spoken == "" {
		return fmt.Errorf("synthesizing %q: %w", text, ErrEmptySynthesisInput)
	}

	if err := c.acquire(ctx, c.cfg.TTSModel); err != nil {
		return err
	}

	voice := c.cfg.Voices[int(c.voice.Add(1)-1)%len(c.cfg.Voices)]
	audio, err := c.synth.Speak(ctx, c.cfg.TTSModel, voice, spoken)
	if err != nil {
		return fmt.Errorf("speech for %q: %w", spoken, err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create audio directory: %w", err)
		}
	}
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return nil
}

package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/PaperclipBadger/gpt-flashcards/internal/testutil"
)

func TestSynthesizeWritesAudioFile(t *testing.T) {
	synth := &testutil.SpySynthesizer{Audio: []byte("mp3 bytes")}
	client := newTestClient(t, nil, synth)

	path := filepath.Join(t.TempDir(), "media", "kot0.mp3")
	if err := client.Synthesize(context.Background(), "Mam {kota}.", path); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading audio file: %v", err)
	}
	if string(data) != "mp3 bytes" {
		t.Errorf("audio file content = %q", data)
	}
}

func TestSynthesizeStripsMarkup(t *testing.T) {
	synth := &testutil.SpySynthesizer{}
	client := newTestClient(t, nil, synth)

	path := filepath.Join(t.TempDir(), "kot.mp3")
	if err := client.Synthesize(context.Background(), "Mam <b>czarnego</b> {kota}.", path); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if want := "Mam czarnego kota."; synth.Texts[0] != want {
		t.Errorf("spoken text = %q, want %q", synth.Texts[0], want)
	}
}

func TestSynthesizeSkipsExistingFile(t *testing.T) {
	synth := &testutil.SpySynthesizer{}
	client := newTestClient(t, nil, synth)

	path := filepath.Join(t.TempDir(), "media", "kot.mp3")
	testutil.CreateTestFile(t, path, []byte("old audio"))

	if err := client.Synthesize(context.Background(), "Mam kota.", path); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if synth.Calls != 0 {
		t.Errorf("synthesizer called %d times for existing file, want 0", synth.Calls)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "old audio" {
		t.Errorf("existing file was overwritten: %q", data)
	}
}

func TestSynthesizeEmptyInput(t *testing.T) {
	synth := &testutil.SpySynthesizer{}
	client := newTestClient(t, nil, synth)

	path := filepath.Join(t.TempDir(), "empty.mp3")
	err := client.Synthesize(context.Background(), "<b>{}</b>", path)
	if !errors.Is(err, ErrEmptySynthesisInput) {
		t.Fatalf("err = %v, want ErrEmptySynthesisInput", err)
	}
	if synth.Calls != 0 {
		t.Errorf("synthesizer called %d times for empty input, want 0", synth.Calls)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file created for empty input")
	}
}

func TestSynthesizeRotatesVoices(t *testing.T) {
	synth := &testutil.SpySynthesizer{}
	client := newTestClient(t, nil, synth)

	dir := t.TempDir()
	for i := 0; i < len(DefaultVoices)+1; i++ {
		path := filepath.Join(dir, fmt.Sprintf("kot%d.mp3", i))
		if err := client.Synthesize(context.Background(), "Mam kota.", path); err != nil {
			t.Fatalf("Synthesize %d failed: %v", i, err)
		}
	}

	for i, voice := range synth.Voices {
		if want := DefaultVoices[i%len(DefaultVoices)]; voice != want {
			t.Errorf("call %d used voice %q, want %q", i, voice, want)
		}
	}
	// The seventh call wraps around to the first voice.
	if synth.Voices[0] != synth.Voices[len(synth.Voices)-1] {
		t.Errorf("voice rotation did not wrap: %v", synth.Voices)
	}
}

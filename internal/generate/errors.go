package generate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySynthesisInput is returned when a text has nothing left to speak
// after markup removal.
var ErrEmptySynthesisInput = errors.New("nothing to synthesize after markup removal")

// MalformedResponseError means the completion backend returned text that
// does not split into a sentence line and a translation line.
type MalformedResponseError struct {
	Response string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed completion response: %q", e.Response)
}

// RepairError means a generated sentence neither marked the target word
// nor contained it anywhere we could mark ourselves.
type RepairError struct {
	Word     string
	Sentence string
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("sentence %q does not contain %q", e.Sentence, e.Word)
}

// ExhaustedError means every generation attempt for a word produced an
// invalid response.
type ExhaustedError struct {
	Word     string
	Attempts int
	Reasons  []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up on %q after %d attempts: %s",
		e.Word, e.Attempts, strings.Join(e.Reasons, "; "))
}

package anki

import (
	"fmt"
	"sort"
	"strings"
)

// Field describes one field of a note type.
type Field struct {
	Name   string
	Font   string
	Size   int
	RTL    bool
	Sticky bool
}

// Template is one card template of a note type: the question and answer
// formats, plus the browser preview variants.
type Template struct {
	Name  string
	QFmt  string
	AFmt  string
	BQFmt string
	BAFmt string
}

// Model is an Anki note type.
type Model struct {
	ID        int64
	Name      string
	Fields    []Field
	Templates []Template
	CSS       string
	LatexPre  string
	LatexPost string
	SortField int
}

// FieldNames returns the declared field names in order.
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// Note is one note of a collection, with its values zipped against the
// model's field names on demand.
type Note struct {
	ID          int64
	GUID        string
	Model       *Model
	FieldValues []string
	Tags        []string
}

// Field returns the value for the named field. A name the model does not
// declare, or a declared field without a stored value, yields the empty
// string rather than an error; note content is frequently ragged in
// real-world decks.
func (n *Note) Field(name string) string {
	for i, f := range n.Model.Fields {
		if f.Name == name {
			if i < len(n.FieldValues) {
				return n.FieldValues[i]
			}
			return ""
		}
	}
	return ""
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the note carries at least one of the given tags.
func (n *Note) HasAnyTag(tags ...string) bool {
	for _, t := range tags {
		if n.HasTag(t) {
			return true
		}
	}
	return false
}

// Card is one review card generated from a note by a template.
type Card struct {
	ID       int64
	Note     *Note
	Template int
}

// Deck is a named group of cards.
type Deck struct {
	ID    int64
	Name  string
	Cards []*Card
}

// Collection is a materialized read-only view of a package's contents.
type Collection struct {
	Models []*Model
	Notes  []*Note
	Decks  []*Deck
}

// ModelByName finds a model by its name. The error for a missing model
// lists the names that do exist, since a typo in configuration is the
// usual cause.
func (c *Collection) ModelByName(name string) (*Model, error) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no model named %q in collection; available models: %s",
		name, strings.Join(c.modelNames(), ", "))
}

// DeckByName finds a deck by its name, reporting the available names when
// it is missing.
func (c *Collection) DeckByName(name string) (*Deck, error) {
	for _, d := range c.Decks {
		if d.Name == name {
			return d, nil
		}
	}
	names := make([]string, len(c.Decks))
	for i, d := range c.Decks {
		names[i] = d.Name
	}
	sort.Strings(names)
	return nil, fmt.Errorf("no deck named %q in collection; available decks: %s",
		name, strings.Join(names, ", "))
}

func (c *Collection) modelNames() []string {
	names := make([]string, len(c.Models))
	for i, m := range c.Models {
		names[i] = m.Name
	}
	sort.Strings(names)
	return names
}

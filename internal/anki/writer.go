package anki

import (
	"archive/zip"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NoteType declares a note type the writer should embed in the output
// package: an ID stable across exports, ordered field names, and the card
// templates rendering those fields.
type NoteType struct {
	ID        int64
	Name      string
	Fields    []string
	Templates []Template
	CSS       string
}

type outputNote struct {
	model  *NoteType
	fields []string
	tags   []string
}

// Package accumulates note types, notes and media files and serializes
// them into an .apkg archive.
type Package struct {
	deckID   int64
	deckName string
	models   []*NoteType
	notes    []outputNote
	media    []string
}

// NewPackage starts an empty package for a single deck. The deck ID should
// be stable across exports so re-imports update rather than duplicate.
func NewPackage(deckID int64, deckName string) *Package {
	return &Package{deckID: deckID, deckName: deckName}
}

// AddModel registers a note type. Models must be added before notes that
// use them.
func (p *Package) AddModel(m *NoteType) {
	p.models = append(p.models, m)
}

// AddNote adds a note with the given field values and tags. Fields beyond
// the model's declared count are an error; short field lists are padded
// with empty strings.
func (p *Package) AddNote(model *NoteType, fields, tags []string) error {
	if len(fields) > len(model.Fields) {
		return fmt.Errorf("note for model %q has %d fields, model declares %d",
			model.Name, len(fields), len(model.Fields))
	}
	padded := make([]string, len(model.Fields))
	copy(padded, fields)
	p.notes = append(p.notes, outputNote{model: model, fields: padded, tags: tags})
	return nil
}

// AddMedia registers a file to be bundled into the package. Notes refer to
// media by base name ([sound:...] or <img src=...>); duplicates are
// collapsed.
func (p *Package) AddMedia(path string) {
	for _, existing := range p.media {
		if existing == path {
			return
		}
	}
	p.media = append(p.media, path)
}

// NoteCount returns the number of notes added so far.
func (p *Package) NoteCount() int { return len(p.notes) }

// WriteFile serializes the package to outputPath.
func (p *Package) WriteFile(outputPath string) error {
	tempDir, err := os.MkdirTemp("", "gpt_flashcards_export_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := p.writeMedia(tempDir); err != nil {
		return err
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := p.writeDatabase(dbPath); err != nil {
		return err
	}

	return p.writeZip(tempDir, outputPath)
}

// writeMedia copies media files into tempDir under numeric names and
// writes the media mapping file.
func (p *Package) writeMedia(tempDir string) error {
	mapping := make(map[string]string, len(p.media))

	for i, path := range p.media {
		target := filepath.Join(tempDir, fmt.Sprintf("%d", i))
		if err := copyFile(path, target); err != nil {
			return fmt.Errorf("failed to copy media file %s: %w", path, err)
		}
		mapping[fmt.Sprintf("%d", i)] = filepath.Base(path)
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to encode media mapping: %w", err)
	}
	return os.WriteFile(filepath.Join(tempDir, "media"), data, 0644)
}

func (p *Package) writeDatabase(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to create collection database: %w", err)
	}
	defer db.Close()

	if err := createTables(db); err != nil {
		return err
	}
	if err := p.insertCollection(db); err != nil {
		return err
	}
	return p.insertNotesAndCards(db)
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE col (
			id integer PRIMARY KEY,
			crt integer NOT NULL,
			mod integer NOT NULL,
			scm integer NOT NULL,
			ver integer NOT NULL,
			dty integer NOT NULL,
			usn integer NOT NULL,
			ls integer NOT NULL,
			conf text NOT NULL,
			models text NOT NULL,
			decks text NOT NULL,
			dconf text NOT NULL,
			tags text NOT NULL
		)`,
		`CREATE TABLE notes (
			id integer PRIMARY KEY,
			guid text NOT NULL,
			mid integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			tags text NOT NULL,
			flds text NOT NULL,
			sfld text NOT NULL,
			csum integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE cards (
			id integer PRIMARY KEY,
			nid integer NOT NULL,
			did integer NOT NULL,
			ord integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			type integer NOT NULL,
			queue integer NOT NULL,
			due integer NOT NULL,
			ivl integer NOT NULL,
			factor integer NOT NULL,
			reps integer NOT NULL,
			lapses integer NOT NULL,
			left integer NOT NULL,
			odue integer NOT NULL,
			odid integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE revlog (
			id integer PRIMARY KEY,
			cid integer NOT NULL,
			usn integer NOT NULL,
			ease integer NOT NULL,
			ivl integer NOT NULL,
			lastIvl integer NOT NULL,
			factor integer NOT NULL,
			time integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE TABLE graves (
			usn integer NOT NULL,
			oid integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE INDEX ix_notes_csum ON notes (csum)`,
		`CREATE INDEX ix_notes_usn ON notes (usn)`,
		`CREATE INDEX ix_cards_usn ON cards (usn)`,
		`CREATE INDEX ix_cards_nid ON cards (nid)`,
		`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
		`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
		`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create collection schema: %w", err)
		}
	}
	return nil
}

func (p *Package) insertCollection(db *sql.DB) error {
	now := time.Now().Unix()

	decks := map[string]interface{}{
		"1": deckConfig(1, "Default", now),
		fmt.Sprintf("%d", p.deckID): deckConfig(p.deckID, p.deckName, now),
	}
	decksJSON, _ := json.Marshal(decks)

	models := make(map[string]interface{}, len(p.models))
	for _, m := range p.models {
		models[fmt.Sprintf("%d", m.ID)] = p.noteTypeConfig(m, now)
	}
	modelsJSON, _ := json.Marshal(models)

	conf := map[string]interface{}{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      "",
		"dayLearnFirst": false,
	}
	if len(p.models) > 0 {
		conf["curModel"] = fmt.Sprintf("%d", p.models[0].ID)
	}
	confJSON, _ := json.Marshal(conf)

	dconf := map[string]interface{}{
		"1": map[string]interface{}{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]interface{}{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]interface{}{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]interface{}{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      now,
			"autoplay": true,
			"replayq":  true,
		},
	}
	dconfJSON, _ := json.Marshal(dconf)

	_, err := db.Exec(`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1,        // id
		now,      // crt
		now*1000, // mod
		now*1000, // scm
		11,       // ver (schema version)
		0,        // dty
		0,        // usn
		0,        // ls
		string(confJSON),
		string(modelsJSON),
		string(decksJSON),
		string(dconfJSON),
		"{}",
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection row: %w", err)
	}
	return nil
}

func deckConfig(id int64, name string, now int64) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"name":             name,
		"mod":              now,
		"desc":             "",
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

func (p *Package) noteTypeConfig(m *NoteType, now int64) map[string]interface{} {
	flds := make([]map[string]interface{}, len(m.Fields))
	for i, name := range m.Fields {
		flds[i] = map[string]interface{}{
			"name":   name,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Liberation Sans",
			"size":   20,
			"media":  []string{},
		}
	}

	tmpls := make([]map[string]interface{}, len(m.Templates))
	req := make([][]interface{}, len(m.Templates))
	for i, t := range m.Templates {
		tmpls[i] = map[string]interface{}{
			"name":  t.Name,
			"ord":   i,
			"qfmt":  t.QFmt,
			"afmt":  t.AFmt,
			"did":   nil,
			"bqfmt": t.BQFmt,
			"bafmt": t.BAFmt,
		}
		req[i] = []interface{}{i, "any", []int{0}}
	}

	return map[string]interface{}{
		"id":    m.ID,
		"name":  m.Name,
		"type":  0,
		"mod":   now,
		"usn":   -1,
		"sortf": 0,
		"did":   p.deckID,
		"req":   req,
		"vers":  []int{},
		"tags":  []string{},
		"latexPre": `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}`,
		"latexPost": `\end{document}`,
		"flds":      flds,
		"tmpls":     tmpls,
		"css":       m.CSS,
	}
}

func (p *Package) insertNotesAndCards(db *sql.DB) error {
	now := time.Now()
	base := now.UnixMilli()

	noteID := base
	cardID := base + int64(len(p.notes))

	for _, note := range p.notes {
		noteID++

		flds := strings.Join(note.fields, fieldSeparator)
		sortField := ""
		if len(note.fields) > 0 {
			sortField = note.fields[0]
		}

		_, err := db.Exec(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			noteID,
			noteGUID(note.model.ID, note.fields),
			note.model.ID,
			now.Unix(),
			-1,
			tagString(note.tags),
			flds,
			sortField,
			0,
			0,
			"",
		)
		if err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}

		// One card per template, all scheduled as new.
		for ord := range note.model.Templates {
			cardID++
			_, err = db.Exec(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				cardID,
				noteID,
				p.deckID,
				ord,
				now.Unix(),
				-1,
				0,      // type: new
				0,      // queue: new
				cardID, // due doubles as position for new cards
				0, 0, 0, 0, 0, 0, 0, 0,
				"",
			)
			if err != nil {
				return fmt.Errorf("failed to insert card: %w", err)
			}
		}
	}
	return nil
}

// noteGUID derives a stable GUID from the model and field contents so
// re-importing an updated package replaces notes instead of duplicating
// them.
func noteGUID(modelID int64, fields []string) string {
	h := sha1.New()
	fmt.Fprintf(h, "%d\x1f", modelID)
	io.WriteString(h, strings.Join(fields, fieldSeparator))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func tagString(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func (p *Package) writeZip(tempDir, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create package file: %w", err)
	}
	defer zipFile.Close()

	archive := zip.NewWriter(zipFile)
	defer archive.Close()

	return filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(tempDir, path)
		if err != nil {
			return err
		}

		writer, err := archive.Create(relPath)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// fieldSeparator joins note field values in the flds column.
const fieldSeparator = "\x1f"

// collectionNames are the database file names found inside a package, in
// preference order: newer exports carry collection.anki21 alongside a stub
// collection.anki2.
var collectionNames = []string{"collection.anki21", "collection.anki2"}

// ReadPackage opens an .apkg file and materializes its models, notes and
// decks into a Collection.
func ReadPackage(path string) (*Collection, error) {
	tempDir, err := os.MkdirTemp("", "gpt_flashcards_import_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath, err := extractCollection(path, tempDir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection database: %w", err)
	}
	defer db.Close()

	return readCollection(db)
}

// extractCollection pulls the collection database out of the package zip
// and returns its path on disk.
func extractCollection(path, tempDir string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open package %s: %w", path, err)
	}
	defer reader.Close()

	for _, name := range collectionNames {
		for _, file := range reader.File {
			if file.Name != name {
				continue
			}

			target := filepath.Join(tempDir, name)
			out, err := os.Create(target)
			if err != nil {
				return "", fmt.Errorf("failed to create %s: %w", target, err)
			}

			in, err := file.Open()
			if err != nil {
				out.Close()
				return "", fmt.Errorf("failed to read %s from package: %w", name, err)
			}

			_, err = io.Copy(out, in)
			in.Close()
			out.Close()
			if err != nil {
				return "", fmt.Errorf("failed to extract %s: %w", name, err)
			}
			return target, nil
		}
	}

	return "", fmt.Errorf("package %s contains no collection database", path)
}

// JSON shapes of the col table's models and decks columns.

type modelJSON struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Fields    []fieldJSON    `json:"flds"`
	Templates []templateJSON `json:"tmpls"`
	CSS       string         `json:"css"`
	LatexPre  string         `json:"latexPre"`
	LatexPost string         `json:"latexPost"`
	SortField int            `json:"sortf"`
}

type fieldJSON struct {
	Name   string `json:"name"`
	Font   string `json:"font"`
	Size   int    `json:"size"`
	RTL    bool   `json:"rtl"`
	Sticky bool   `json:"sticky"`
}

type templateJSON struct {
	Name  string `json:"name"`
	QFmt  string `json:"qfmt"`
	AFmt  string `json:"afmt"`
	BQFmt string `json:"bqfmt"`
	BAFmt string `json:"bafmt"`
}

type deckJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func readCollection(db *sql.DB) (*Collection, error) {
	var modelsRaw, decksRaw string
	err := db.QueryRow(`SELECT models, decks FROM col LIMIT 1`).Scan(&modelsRaw, &decksRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection metadata: %w", err)
	}

	models, err := parseModels(modelsRaw)
	if err != nil {
		return nil, err
	}

	decks, err := parseDecks(decksRaw)
	if err != nil {
		return nil, err
	}

	notes, err := readNotes(db, models)
	if err != nil {
		return nil, err
	}

	if err := readCards(db, notes, decks); err != nil {
		return nil, err
	}

	collection := &Collection{}
	for _, m := range models {
		collection.Models = append(collection.Models, m)
	}
	for _, n := range notes {
		collection.Notes = append(collection.Notes, n)
	}
	for _, d := range decks {
		collection.Decks = append(collection.Decks, d)
	}
	return collection, nil
}

func parseModels(raw string) (map[int64]*Model, error) {
	var parsed map[string]modelJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse models JSON: %w", err)
	}

	models := make(map[int64]*Model, len(parsed))
	for _, mj := range parsed {
		m := &Model{
			ID:        mj.ID,
			Name:      mj.Name,
			CSS:       mj.CSS,
			LatexPre:  mj.LatexPre,
			LatexPost: mj.LatexPost,
			SortField: mj.SortField,
		}
		for _, fj := range mj.Fields {
			m.Fields = append(m.Fields, Field{
				Name:   fj.Name,
				Font:   fj.Font,
				Size:   fj.Size,
				RTL:    fj.RTL,
				Sticky: fj.Sticky,
			})
		}
		for _, tj := range mj.Templates {
			m.Templates = append(m.Templates, Template{
				Name:  tj.Name,
				QFmt:  tj.QFmt,
				AFmt:  tj.AFmt,
				BQFmt: tj.BQFmt,
				BAFmt: tj.BAFmt,
			})
		}
		models[m.ID] = m
	}
	return models, nil
}

func parseDecks(raw string) (map[int64]*Deck, error) {
	var parsed map[string]deckJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse decks JSON: %w", err)
	}

	decks := make(map[int64]*Deck, len(parsed))
	for _, dj := range parsed {
		decks[dj.ID] = &Deck{ID: dj.ID, Name: dj.Name}
	}
	return decks, nil
}

func readNotes(db *sql.DB, models map[int64]*Model) (map[int64]*Note, error) {
	rows, err := db.Query(`SELECT id, guid, mid, flds, tags FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	defer rows.Close()

	notes := make(map[int64]*Note)
	for rows.Next() {
		var (
			id, mid    int64
			guid, flds string
			tags       string
		)
		if err := rows.Scan(&id, &guid, &mid, &flds, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}

		model, ok := models[mid]
		if !ok {
			return nil, fmt.Errorf("note %d references unknown model %d", id, mid)
		}

		notes[id] = &Note{
			ID:          id,
			GUID:        guid,
			Model:       model,
			FieldValues: strings.Split(flds, fieldSeparator),
			Tags:        strings.Fields(tags),
		}
	}
	return notes, rows.Err()
}

func readCards(db *sql.DB, notes map[int64]*Note, decks map[int64]*Deck) error {
	rows, err := db.Query(`SELECT id, nid, did, ord FROM cards`)
	if err != nil {
		return fmt.Errorf("failed to read cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, nid, did int64
		var ord int
		if err := rows.Scan(&id, &nid, &did, &ord); err != nil {
			return fmt.Errorf("failed to scan card: %w", err)
		}

		note, ok := notes[nid]
		if !ok {
			return fmt.Errorf("card %d references unknown note %d", id, nid)
		}
		deck, ok := decks[did]
		if !ok {
			return fmt.Errorf("card %d references unknown deck %d", id, did)
		}

		deck.Cards = append(deck.Cards, &Card{ID: id, Note: note, Template: ord})
	}
	return rows.Err()
}

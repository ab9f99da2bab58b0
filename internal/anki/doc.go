// Package anki reads and writes the Anki package format (.apkg): a zip
// archive containing a SQLite collection database and numbered media files.
// See https://github.com/ankidroid/Anki-Android/wiki/Database-Structure.
package anki

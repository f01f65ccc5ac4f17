package sqlite

// Schema DDL. The medium is a single two-column table; keys are stored with
// the namespace prefix already applied.
const createEntries = `CREATE TABLE IF NOT EXISTS entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

const (
	upsertEntry = `INSERT INTO entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	selectEntry  = `SELECT value FROM entries WHERE key = ?`
	deleteEntry  = `DELETE FROM entries WHERE key = ?`
	selectPrefix = `SELECT key, value FROM entries WHERE substr(key, 1, ?) = ?`
)

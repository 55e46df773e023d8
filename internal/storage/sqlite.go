package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"stocklens/internal/models"
)

// SQLiteStore persists product captures in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at filePath.
func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, err
	}
	st := &SQLiteStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			product_name TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			confidence REAL NOT NULL,
			image_ref TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_products_session ON products(session_id);
	`)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveProduct inserts the record, replacing any existing row with the same id.
func (s *SQLiteStore) SaveProduct(record models.ProductRecord) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO products
		(id, product_name, unit, description, category, confidence, image_ref, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ProductName,
		record.Unit,
		record.Description,
		string(record.Category),
		record.Confidence,
		record.ImageRef,
		record.SessionID,
		toTS(record.CreatedAt),
	)
	return err
}

// GetProduct fetches one record by id.
func (s *SQLiteStore) GetProduct(id string) (models.ProductRecord, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, product_name, unit, description, category, confidence, image_ref, session_id, created_at
		FROM products
		WHERE id = ?`,
		id,
	)
	record, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProductRecord{}, false, nil
	}
	if err != nil {
		return models.ProductRecord{}, false, err
	}
	return record, true, nil
}

// DeleteProduct removes one record by id. Returns ErrNotFound when no row
// matched.
func (s *SQLiteStore) DeleteProduct(id string) error {
	res, err := s.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBySession returns the session's products, newest first.
func (s *SQLiteStore) ListBySession(sessionID string) ([]models.ProductRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, product_name, unit, description, category, confidence, image_ref, session_id, created_at
		FROM products
		WHERE session_id = ?
		ORDER BY created_at DESC, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]models.ProductRecord, 0)
	for rows.Next() {
		record, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, record)
	}
	return products, rows.Err()
}

// ClearSession deletes every product in the session and reports how many
// rows were removed.
func (s *SQLiteStore) ClearSession(sessionID string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM products WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// ListSessions aggregates the session directory, most recently seen first.
// Rows with an empty session_id are reported under "default".
func (s *SQLiteStore) ListSessions() ([]models.SessionSummary, error) {
	rows, err := s.db.Query(`
		SELECT CASE WHEN session_id = '' THEN 'default' ELSE session_id END AS sid,
		       COUNT(*) AS count,
		       MAX(created_at) AS last_seen
		FROM products
		GROUP BY sid
		ORDER BY last_seen DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.SessionSummary, 0)
	for rows.Next() {
		var summary models.SessionSummary
		var lastSeen string
		if err := rows.Scan(&summary.SessionID, &summary.Count, &lastSeen); err != nil {
			return nil, err
		}
		summary.LastSeen = fromTS(lastSeen)
		sessions = append(sessions, summary)
	}
	return sessions, rows.Err()
}

func scanProduct(scan func(dest ...any) error) (models.ProductRecord, error) {
	var record models.ProductRecord
	var category, createdAt string
	err := scan(
		&record.ID,
		&record.ProductName,
		&record.Unit,
		&record.Description,
		&category,
		&record.Confidence,
		&record.ImageRef,
		&record.SessionID,
		&createdAt,
	)
	if err != nil {
		return models.ProductRecord{}, err
	}
	record.Category = models.Category(category)
	record.CreatedAt = fromTS(createdAt)
	return record, nil
}

func toTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fromTS(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

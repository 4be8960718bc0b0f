package notify

import (
	"context"
	"database/sql"
	"sync"

	"github.com/mind-engage/examvault/internal/db"
)

// Recipient is the contact data of one student.
type Recipient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Directory resolves student ids to contact data. Unknown ids are absent
// from the result.
type Directory interface {
	Recipients(ctx context.Context, ids []string) (map[string]Recipient, error)
}

// SQLDirectory reads the users table.
type SQLDirectory struct {
	db     *sql.DB
	driver string
}

func NewSQLDirectory(db *sql.DB, driver string) *SQLDirectory {
	return &SQLDirectory{db: db, driver: driver}
}

func (d *SQLDirectory) Recipients(ctx context.Context, ids []string) (map[string]Recipient, error) {
	out := make(map[string]Recipient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, email FROM users WHERE id IN (`+db.Placeholders(db.Driver(d.driver), len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(&r.ID, &r.Name, &r.Email); err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	return out, rows.Err()
}

// Upsert stores or replaces one user row.
func (d *SQLDirectory) Upsert(ctx context.Context, r Recipient, role string) error {
	var query string
	switch d.driver {
	case "postgres":
		query = `INSERT INTO users (id, name, email, role) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email, role=EXCLUDED.role`
	case "mysql":
		query = `INSERT INTO users (id, name, email, role) VALUES (?,?,?,?)
		ON DUPLICATE KEY UPDATE name=VALUES(name), email=VALUES(email), role=VALUES(role)`
	default:
		query = `INSERT INTO users (id, name, email, role) VALUES (?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET name=excluded.name, email=excluded.email, role=excluded.role`
	}
	_, err := d.db.ExecContext(ctx, query, r.ID, r.Name, r.Email, role)
	return err
}

// MemoryDirectory is a fixed directory for development and tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]Recipient
}

func NewMemoryDirectory(rs ...Recipient) *MemoryDirectory {
	d := &MemoryDirectory{users: make(map[string]Recipient, len(rs))}
	for _, r := range rs {
		d.users[r.ID] = r
	}
	return d
}

func (d *MemoryDirectory) Add(r Recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[r.ID] = r
}

func (d *MemoryDirectory) Recipients(_ context.Context, ids []string) (map[string]Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]Recipient, len(ids))
	for _, id := range ids {
		if r, ok := d.users[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

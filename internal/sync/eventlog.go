package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/mind-engage/examvault/internal/db"
)

const (
	TypeAttemptSubmitted = "AttemptSubmitted"
	TypeResultsReleased  = "ResultsReleased"
)

type Event struct {
	Seq       int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

// NewEvent builds an event with data marshalled to JSON.
func NewEvent(typ, key string, data any) Event {
	buf, err := json.Marshal(data)
	if err != nil {
		buf = []byte("{}")
	}
	return Event{Type: typ, Key: key, DataJSON: string(buf)}
}

// Appender is the write side of the event log.
type Appender interface {
	Append(ctx context.Context, e Event) error
}

type EventRepo struct {
	db       *sql.DB
	postgres bool
}

func NewEventRepo(db *sql.DB, driver string) *EventRepo {
	return &EventRepo{db: db, postgres: driver == "postgres"}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	site := e.SiteID
	if site == "" {
		site = "local"
	}
	query := `INSERT INTO event_log (site_id, typ, event_key, data, created_at) VALUES (?,?,?,?,?)`
	if r.postgres {
		query = db.Rebind(db.DriverPostgres, query)
	}
	_, err := r.db.ExecContext(ctx, query, site, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// List returns events of one type in append order.
func (r *EventRepo) List(ctx context.Context, typ string) ([]Event, error) {
	query := `SELECT seq, site_id, typ, event_key, data, created_at FROM event_log WHERE typ=? ORDER BY seq`
	if r.postgres {
		query = db.Rebind(db.DriverPostgres, query)
	}
	rows, err := r.db.QueryContext(ctx, query, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoryLog keeps events in process memory.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemoryLog) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Seq = int64(len(m.events) + 1)
	e.CreatedAt = time.Now().Unix()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryLog) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

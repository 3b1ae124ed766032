package preview

import (
	"fmt"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Store keeps preview session traces in a local sqlite database. Traces make
// scroll behavior reproducible: a narrative author can replay exactly what a
// reviewer saw.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	user_agent TEXT
);
CREATE TABLE IF NOT EXISTS samples (
	session_id TEXT    NOT NULL REFERENCES sessions(id),
	at         INTEGER NOT NULL,
	scroll_top REAL    NOT NULL,
	step       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS samples_by_session ON samples(session_id, at);
`

// OpenStore opens or creates the trace database. An empty path disables
// tracing, every method on the nil store is a no-op.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, nil
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("unable to open session store: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, storeSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare session store: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// BeginSession records the start of one viewer connection.
func (s *Store) BeginSession(id, userAgent string, at time.Time) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sqlitex.Execute(s.conn,
		"INSERT INTO sessions (id, started_at, user_agent) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{id, at.UnixMilli(), userAgent}})
}

// Sample records one observed scroll position and the step it resolved to.
func (s *Store) Sample(sessionID string, at time.Time, scrollTop float64, step int) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sqlitex.Execute(s.conn,
		"INSERT INTO samples (session_id, at, scroll_top, step) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{sessionID, at.UnixMilli(), scrollTop, step}})
}

// TraceSample is one replayed scroll observation.
type TraceSample struct {
	At        time.Time
	ScrollTop float64
	Step      int
}

// Trace returns the recorded samples of one session in order.
func (s *Store) Trace(sessionID string) ([]TraceSample, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []TraceSample
	err := sqlitex.Execute(s.conn,
		"SELECT at, scroll_top, step FROM samples WHERE session_id = ? ORDER BY at",
		&sqlitex.ExecOptions{
			Args: []any{sessionID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, TraceSample{
					At:        time.UnixMilli(stmt.ColumnInt64(0)),
					ScrollTop: stmt.ColumnFloat(1),
					Step:      stmt.ColumnInt(2),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to read session trace: %w", err)
	}
	return out, nil
}

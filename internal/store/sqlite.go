package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS listingnotes_kv (
	area       TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	origin     TEXT    NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (area, key)
)`

// SQLite keeps the store in a table of a SQLite database. Commits made by
// other connections are detected by polling PRAGMA data_version on a
// dedicated connection.
type SQLite struct {
	db       *sql.DB
	conn     *sql.Conn
	logger   *slog.Logger
	interval time.Duration

	write   sync.Mutex
	mu      sync.Mutex
	values  map[string]json.RawMessage
	origins map[string]string
	version int64
	closed  bool
	hub     hub

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrInvalidDSN)
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite watch connection: %w", err)
	}

	s := &SQLite{
		db:       db,
		conn:     conn,
		logger:   discardLogger(opts.Logger),
		interval: opts.pollInterval(),
		done:     make(chan struct{}),
	}

	if s.version, err = s.dataVersion(ctx); err != nil {
		_ = s.closeDB()
		return nil, err
	}
	values, origins, err := s.load(ctx)
	if err != nil {
		_ = s.closeDB()
		return nil, err
	}
	s.values, s.origins = values, origins

	s.wg.Add(1)
	go s.poll()

	return s, nil
}

func (s *SQLite) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read sqlite data_version: %w", err)
	}
	return v, nil
}

func (s *SQLite) load(ctx context.Context) (map[string]json.RawMessage, map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT key, value, origin FROM listingnotes_kv WHERE area = ?", AreaLocal)
	if err != nil {
		return nil, nil, fmt.Errorf("query sqlite store: %w", err)
	}
	defer rows.Close()

	values := make(map[string]json.RawMessage)
	origins := make(map[string]string)
	for rows.Next() {
		var key, value, origin string
		if err := rows.Scan(&key, &value, &origin); err != nil {
			return nil, nil, fmt.Errorf("scan sqlite row: %w", err)
		}
		values[key] = json.RawMessage(value)
		origins[key] = origin
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sqlite rows: %w", err)
	}
	return values, origins, nil
}

func (s *SQLite) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return pick(s.values, keys), nil
}

func (s *SQLite) Set(ctx context.Context, origin string, values map[string]json.RawMessage) error {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	now := time.Now().UTC().UnixMilli()
	for key, value := range values {
		if value == nil {
			_, err = tx.ExecContext(ctx, "DELETE FROM listingnotes_kv WHERE area = ? AND key = ?", AreaLocal, key)
		} else {
			_, err = tx.ExecContext(ctx, `INSERT INTO listingnotes_kv (area, key, value, origin, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (area, key) DO UPDATE SET
					value = excluded.value,
					origin = excluded.origin,
					updated_at = excluded.updated_at`,
				AreaLocal, key, string(value), origin, now)
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write sqlite key %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}

	s.mu.Lock()
	deltas := apply(s.values, values)
	for key, value := range values {
		if value == nil {
			delete(s.origins, key)
		} else {
			s.origins[key] = origin
		}
	}
	s.mu.Unlock()

	s.hub.publish(Change{Area: AreaLocal, Origin: origin, Keys: deltas})
	return nil
}

func (s *SQLite) poll() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.refresh(); err != nil {
				s.logger.Warn("sqlite store poll failed", "err", err)
			}
		}
	}
}

func (s *SQLite) refresh() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.write.Lock()
	defer s.write.Unlock()

	version, err := s.dataVersion(ctx)
	if err != nil {
		return err
	}
	if version == s.version {
		return nil
	}
	s.version = version

	values, origins, err := s.load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	deltas := diff(s.values, values)
	s.values, s.origins = values, origins
	s.mu.Unlock()

	for origin, keys := range groupByOrigin(deltas, origins) {
		s.hub.publish(Change{Area: AreaLocal, Origin: origin, Keys: keys})
	}
	return nil
}

// groupByOrigin splits deltas by the writer recorded for each key. Removed
// keys have no recorded writer and are reported without one.
func groupByOrigin(deltas map[string]Delta, origins map[string]string) map[string]map[string]Delta {
	out := make(map[string]map[string]Delta)
	for key, d := range deltas {
		origin := origins[key]
		if out[origin] == nil {
			out[origin] = make(map[string]Delta)
		}
		out[origin][key] = d
	}
	return out
}

func (s *SQLite) Subscribe(fn func(Change)) func() {
	return s.hub.subscribe(fn)
}

func (s *SQLite) closeDB() error {
	var errs []error
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

func (s *SQLite) Close() error {
	var closeErr error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.wg.Wait()
		closeErr = s.closeDB()
		s.hub.reset()
	})
	return closeErr
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresChannel = "listingnotes_kv"
	postgresSchema  = `CREATE TABLE IF NOT EXISTS listingnotes_kv (
	area       TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	origin     TEXT        NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (area, key)
)`
)

// notification is the NOTIFY payload. Values are re-read by listeners so
// large mappings never hit the payload size limit.
type notification struct {
	Origin string   `json:"origin"`
	Area   string   `json:"area"`
	Keys   []string `json:"keys"`
}

func encodeNotification(n notification) (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeNotification(payload string) (notification, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	if n.Area == "" {
		n.Area = AreaLocal
	}
	return n, nil
}

// Postgres keeps the store in a JSONB table and broadcasts writes with
// NOTIFY on a channel every instance LISTENs on.
type Postgres struct {
	pool     *pgxpool.Pool
	listener *pgx.Conn
	logger   *slog.Logger

	mu     sync.Mutex
	values map[string]json.RawMessage
	closed bool
	hub    hub

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func OpenPostgres(ctx context.Context, dsn string, opts Options) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}

	listener, err := pgx.Connect(ctx, dsn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open postgres listener: %w", err)
	}
	if _, err := listener.Exec(ctx, "LISTEN "+pgx.Identifier{postgresChannel}.Sanitize()); err != nil {
		_ = listener.Close(ctx)
		pool.Close()
		return nil, fmt.Errorf("listen on %s: %w", postgresChannel, err)
	}

	p := &Postgres{
		pool:     pool,
		listener: listener,
		logger:   discardLogger(opts.Logger),
		values:   make(map[string]json.RawMessage),
	}

	values, err := p.query(ctx, nil)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.values = values

	listenCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.listen(listenCtx)

	return p, nil
}

// query reads keys, or the whole area when keys is nil.
func (p *Postgres) query(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if keys == nil {
		rows, err = p.pool.Query(ctx, "SELECT key, value::text FROM listingnotes_kv WHERE area = $1", AreaLocal)
	} else {
		rows, err = p.pool.Query(ctx, "SELECT key, value::text FROM listingnotes_kv WHERE area = $1 AND key = ANY($2)", AreaLocal, keys)
	}
	if err != nil {
		return nil, fmt.Errorf("query postgres store: %w", err)
	}
	defer rows.Close()

	values := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan postgres row: %w", err)
		}
		values[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postgres rows: %w", err)
	}
	return values, nil
}

func (p *Postgres) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return p.query(ctx, keys)
}

func (p *Postgres) Set(ctx context.Context, origin string, values map[string]json.RawMessage) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	payload, err := encodeNotification(notification{Origin: origin, Area: AreaLocal, Keys: keys})
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for key, value := range values {
			if value == nil {
				if _, err := tx.Exec(ctx, "DELETE FROM listingnotes_kv WHERE area = $1 AND key = $2", AreaLocal, key); err != nil {
					return fmt.Errorf("delete postgres key %q: %w", key, err)
				}
				continue
			}
			if _, err := tx.Exec(ctx, `INSERT INTO listingnotes_kv (area, key, value, origin, updated_at)
				VALUES ($1, $2, $3::jsonb, $4, now())
				ON CONFLICT (area, key) DO UPDATE SET
					value = EXCLUDED.value,
					origin = EXCLUDED.origin,
					updated_at = EXCLUDED.updated_at`,
				AreaLocal, key, string(value), origin); err != nil {
				return fmt.Errorf("write postgres key %q: %w", key, err)
			}
		}
		_, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", postgresChannel, payload)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres set: %w", err)
	}

	p.mu.Lock()
	deltas := apply(p.values, values)
	p.mu.Unlock()

	p.hub.publish(Change{Area: AreaLocal, Origin: origin, Keys: deltas})
	return nil
}

func (p *Postgres) listen(ctx context.Context) {
	defer p.wg.Done()
	for {
		n, err := p.listener.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("postgres listener stopped", "err", err)
			return
		}
		if err := p.handle(ctx, n.Payload); err != nil {
			p.logger.Warn("postgres notification ignored", "err", err)
		}
	}
}

func (p *Postgres) handle(ctx context.Context, payload string) error {
	n, err := decodeNotification(payload)
	if err != nil {
		return err
	}
	if n.Area != AreaLocal || len(n.Keys) == 0 {
		return nil
	}

	qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	current, err := p.query(qctx, n.Keys)
	if err != nil {
		return err
	}

	next := make(map[string]json.RawMessage, len(n.Keys))
	for _, key := range n.Keys {
		next[key] = current[key]
	}

	p.mu.Lock()
	deltas := apply(p.values, next)
	p.mu.Unlock()

	p.hub.publish(Change{Area: AreaLocal, Origin: n.Origin, Keys: deltas})
	return nil
}

func (p *Postgres) Subscribe(fn func(Change)) func() {
	return p.hub.subscribe(fn)
}

func (p *Postgres) Close() error {
	var closeErr error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.listener.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
			closeErr = err
		}
		p.pool.Close()
		p.hub.reset()
	})
	return closeErr
}

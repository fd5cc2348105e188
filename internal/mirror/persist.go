package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Paintersrp/listingnotes/internal/store"
)

// Retry bounds how hard a persist is retried before it is reported as
// failed.
type Retry struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (r Retry) withDefaults() Retry {
	if r.MaxTries == 0 {
		r.MaxTries = 5
	}
	if r.InitialInterval <= 0 {
		r.InitialInterval = 100 * time.Millisecond
	}
	if r.MaxInterval <= 0 {
		r.MaxInterval = 2 * time.Second
	}
	return r
}

// persister writes snapshots one at a time in the order they were queued.
// Snapshots queued while another is in flight are merged, so a later value
// of a key always lands after an earlier one.
type persister struct {
	store   store.Store
	origin  string
	retry   Retry
	logger  *slog.Logger
	onError func([]string, error)

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []map[string]json.RawMessage
	closed bool
	idle   chan struct{}
	isIdle bool
	wg     sync.WaitGroup
}

func newPersister(st store.Store, origin string, retry Retry, logger *slog.Logger, onError func([]string, error)) *persister {
	p := &persister{
		store:   st,
		origin:  origin,
		retry:   retry.withDefaults(),
		logger:  logger,
		onError: onError,
		idle:    make(chan struct{}),
		isIdle:  true,
	}
	close(p.idle)
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *persister) enqueue(values map[string]json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("persist dropped after close", "keys", keysOf(values))
		return
	}

	if n := len(p.queue); n > 0 {
		tail := p.queue[n-1]
		for k, v := range values {
			tail[k] = v
		}
	} else {
		p.queue = append(p.queue, values)
	}

	if p.isIdle {
		p.idle = make(chan struct{})
		p.isIdle = false
	}
	p.cond.Signal()
}

func (p *persister) run() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 {
			if !p.isIdle {
				close(p.idle)
				p.isIdle = true
			}
			if p.closed {
				p.mu.Unlock()
				return
			}
			p.cond.Wait()
		}
		values := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.persist(values)
	}
}

func (p *persister) persist(values map[string]json.RawMessage) {
	keys := keysOf(values)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retry.InitialInterval
	b.MaxInterval = p.retry.MaxInterval

	op := func() (struct{}, error) {
		err := p.store.Set(context.Background(), p.origin, values)
		if errors.Is(err, store.ErrClosed) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(context.Background(), op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.retry.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Warn("persist failed, retrying", "keys", keys, "err", err, "retry_in", next)
		}),
	)
	if err != nil {
		p.logger.Error("persist failed", "keys", keys, "err", err)
		if p.onError != nil {
			p.onError(keys, err)
		}
		return
	}
	p.logger.Debug("persisted", "keys", keys)
}

func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func keysOf(values map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package devicelock serializes work per device serial.
//
// A Locker combines an in-process mutex per key with an advisory lock file
// per key, so terminate-then-spawn sequences for one serial never interleave,
// whether the contenders are goroutines or separate server processes.
package devicelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const retryDelay = 50 * time.Millisecond

// Locker hands out per-key exclusive locks.
type Locker struct {
	dir string

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// New creates a Locker. When dir is empty only in-process exclusion is applied.
func New(dir string) *Locker {
	return &Locker{
		dir:   dir,
		slots: make(map[string]*slot),
	}
}

// Lock blocks until key is held or ctx is done. The returned function
// releases the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	s := l.acquireSlot(key)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseSlot(key, s, false)
		return nil, ctx.Err()
	}

	fl, err := l.lockFile(ctx, key)
	if err != nil {
		l.releaseSlot(key, s, true)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if fl != nil {
				_ = fl.Unlock()
			}
			l.releaseSlot(key, s, true)
		})
	}, nil
}

// Held reports how many callers currently hold or wait for key.
func (l *Locker) Held(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		return s.refs
	}
	return 0
}

func (l *Locker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Locker) releaseSlot(key string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *Locker) lockFile(ctx context.Context, key string) (*flock.Flock, error) {
	if l.dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("devicelock: create lock dir: %w", err)
	}

	fl := flock.New(l.Path(key))
	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("devicelock: lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("devicelock: lock %s: not acquired", key)
	}
	return fl, nil
}

// Path returns the lock file used for key.
func (l *Locker) Path(key string) string {
	return filepath.Join(l.dir, sanitize(key)+".lock")
}

var unsafeChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

func sanitize(key string) string {
	return unsafeChars.Replace(key)
}

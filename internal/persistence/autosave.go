package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/hexrealm/internal/editor"
)

// Saver writes open editing sessions back to the store when they have
// unsaved edits.
type Saver struct {
	db  *DB
	reg *editor.Registry

	mu sync.Mutex // Serializes SaveAll
}

// NewSaver creates a saver for the sessions in reg.
func NewSaver(db *DB, reg *editor.Registry) *Saver {
	return &Saver{db: db, reg: reg}
}

// SaveAll persists every session with unsaved edits and returns how many
// were written. Sessions whose realm was deleted are skipped.
func (s *Saver) SaveAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	written := 0
	for _, id := range s.reg.IDs() {
		sess, ok := s.reg.Get(id)
		if !ok || !sess.Dirty() {
			continue
		}
		if _, err := s.db.SaveSession(sess); err != nil {
			if errors.Is(err, ErrNotFound) {
				slog.Debug("skipping save of deleted realm", "realm", id)
				continue
			}
			errs = append(errs, err)
			continue
		}
		written++
	}
	return written, errors.Join(errs...)
}

// Run saves on every tick until ctx is cancelled, then saves once more.
func (s *Saver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n, err := s.SaveAll(); err != nil {
				slog.Error("autosave failed", "error", err)
			} else if n > 0 {
				slog.Info("autosaved realms", "count", n)
			}
		case <-ctx.Done():
			slog.Info("final save...")
			n, err := s.SaveAll()
			if err != nil {
				return err
			}
			slog.Info("realms saved", "count", n)
			return nil
		}
	}
}

package relay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tgwatch/relay/internal/logger"
)

// Store manages the scratch directory for downloaded media. Every relay
// operation gets its own subdirectory, so the janitor can purge stale
// artifacts without ever touching a relay still in flight.
type Store struct {
	root string
	log  *logger.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewStore creates the storage root if needed.
func NewStore(root string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create media dir %s: %w", root, err)
	}
	return &Store{
		root:   root,
		log:    log,
		active: make(map[string]struct{}),
	}, nil
}

// Acquire reserves a fresh subdirectory for one relay operation. The release
// func must be called when the relay is done; the files themselves are left
// for the janitor.
func (s *Store) Acquire() (dir string, release func(), err error) {
	name := uuid.NewString()
	dir = filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	s.active[name] = struct{}{}
	s.mu.Unlock()

	release = func() {
		s.mu.Lock()
		delete(s.active, name)
		s.mu.Unlock()
	}
	return dir, release, nil
}

// Purge removes every subdirectory not reserved by an in-flight relay and
// returns the number removed.
func (s *Store) Purge() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("read media dir: %w", err)
	}

	s.mu.Lock()
	inFlight := make(map[string]struct{}, len(s.active))
	for name := range s.active {
		inFlight[name] = struct{}{}
	}
	s.mu.Unlock()

	removed := 0
	for _, entry := range entries {
		if _, busy := inFlight[entry.Name()]; busy {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			s.log.Warn().Err(err).Str("entry", entry.Name()).Msg("relay: failed to purge media entry")
			continue
		}
		removed++
	}
	return removed, nil
}

// RunJanitor purges the store on a fixed schedule until the context is
// canceled. Run it in its own goroutine.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Purge()
			if err != nil {
				s.log.Warn().Err(err).Msg("relay: media purge failed")
				continue
			}
			s.log.Info().Int("removed", removed).Msg("relay: media storage purged")
		}
	}
}

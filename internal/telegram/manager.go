// Package telegram wraps the MTProto client with the operations the relay
// core needs: connection lifecycle, peer resolution, event intake and the
// send/download primitives.
package telegram

import (
	"fmt"
	"sync"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/tg"

	"github.com/tgwatch/relay/internal/config"
	"github.com/tgwatch/relay/internal/logger"
)

// Status represents the client connection state.
type Status string

// Status values.
const (
	StatusInitializing Status = "INITIALIZING"
	StatusReady        Status = "READY"
	StatusStopped      Status = "STOPPED"
)

// Manager owns the client lifecycle. The session comes from the configured
// session string when set (kept in memory), otherwise from the sqlite session
// file so auth key refreshes persist across restarts.
type Manager struct {
	cfg *config.Config
	log *logger.Logger

	mu     sync.RWMutex
	client *gotgproto.Client
	status Status
}

// NewManager creates a manager; Start establishes the connection.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:    cfg,
		log:    logger.Get(),
		status: StatusInitializing,
	}
}

// Start connects and authorizes the client. The session must already be
// authorized (see cmd/tg-auth); there is no interactive login here.
func (m *Manager) Start() error {
	opts := &gotgproto.ClientOpts{
		DisableCopyright: true,
	}

	if m.cfg.TGSessionString != "" {
		opts.Session = sessionMaker.StringSession(m.cfg.TGSessionString)
		opts.InMemory = true
	} else {
		opts.Session = sessionMaker.SqlSession(sqlite.Open(m.cfg.TGSessionFile))
	}

	client, err := gotgproto.NewClient(
		m.cfg.TGApiID,
		m.cfg.TGApiHash,
		gotgproto.ClientTypePhone(""), // empty = use the stored session
		opts,
	)
	if err != nil {
		return fmt.Errorf("create telegram client: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.status = StatusReady
	m.mu.Unlock()

	m.log.Info().
		Int64("self_id", client.Self.ID).
		Str("username", client.Self.Username).
		Msg("telegram: client ready")
	return nil
}

// Client returns the underlying protocol client, nil before Start.
func (m *Manager) Client() *gotgproto.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Self returns the authorized account, nil before Start.
func (m *Manager) Self() *tg.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil
	}
	return m.client.Self
}

// Status returns the current connection state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Stop shuts the client down.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Stop()
		m.status = StatusStopped
	}
}

package session

import (
	"context"
	"sync"
	"time"

	"cinevault/internal/auth"
)

// renewLead is how long before access-token expiry a silent renewal runs.
const renewLead = time.Minute

// Manager owns the in-memory session state: the current user and access
// token. Neither is ever persisted, which is why Start performs a mount-time
// refresh — after a reload the HTTP-only cookie is the only thing that
// survives.
//
// The renewal loop has an explicit Start/Stop lifecycle so the owning
// component can tie it to mount and unmount.
type Manager struct {
	client            *Client
	renewEvery        time.Duration
	onUnauthenticated func()

	mu          sync.Mutex
	user        *auth.PublicUser
	accessToken string
	loading     bool
	notified    bool

	started  bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type ManagerOption func(*Manager)

// WithRenewInterval overrides the silent-renewal period. The default is the
// access TTL minus one minute, so the held token never lapses mid-session.
func WithRenewInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.renewEvery = d
		}
	}
}

// WithUnauthenticatedHook registers the redirect callback fired once each
// time loading completes (or a renewal fails) and no session is held.
func WithUnauthenticatedHook(fn func()) ManagerOption {
	return func(m *Manager) { m.onUnauthenticated = fn }
}

func NewManager(client *Client, accessTTL time.Duration, opts ...ManagerOption) *Manager {
	renewEvery := accessTTL - renewLead
	if renewEvery <= 0 {
		renewEvery = accessTTL
	}

	m := &Manager{
		client:     client,
		renewEvery: renewEvery,
		loading:    true,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start performs the mount-time silent refresh and launches the renewal loop.
// Any failure of the initial refresh, network or rejection alike, just means
// there is no session.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()

	if state, err := m.client.Refresh(ctx); err == nil {
		m.setSession(state)
	} else {
		m.clearSession()
	}

	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
	m.notifyIfUnauthenticated()

	go m.renewLoop(ctx)
}

// Stop halts the renewal loop. Safe to call more than once, and a no-op if
// Start was never called.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return
	}

	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

func (m *Manager) renewLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.renewEvery)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.AccessToken() == "" {
				continue
			}
			if state, err := m.client.Refresh(ctx); err == nil {
				m.setSession(state)
			} else {
				// Renewal failures are silent: the session just ends.
				m.clearSession()
				m.notifyIfUnauthenticated()
			}
		}
	}
}

func (m *Manager) Login(ctx context.Context, email, password string) error {
	state, err := m.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	m.setSession(state)
	return nil
}

func (m *Manager) Register(ctx context.Context, email, password string) error {
	state, err := m.client.Register(ctx, email, password)
	if err != nil {
		return err
	}
	m.setSession(state)
	return nil
}

// Logout posts to the server best-effort and always clears local state; a
// network failure still ends the local session.
func (m *Manager) Logout(ctx context.Context) {
	_ = m.client.Logout(ctx)
	m.clearSession()
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken != ""
}

func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Manager) User() *auth.PublicUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

func (m *Manager) setSession(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := state.User
	m.user = &user
	m.accessToken = state.AccessToken
	m.notified = false
}

func (m *Manager) clearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	m.accessToken = ""
}

// notifyIfUnauthenticated fires the redirect hook at most once per
// unauthenticated spell.
func (m *Manager) notifyIfUnauthenticated() {
	m.mu.Lock()
	fire := m.onUnauthenticated != nil && m.accessToken == "" && !m.notified
	if fire {
		m.notified = true
	}
	m.mu.Unlock()

	if fire {
		m.onUnauthenticated()
	}
}

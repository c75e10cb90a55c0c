// Package session manages operator sessions. Each session owns its notification
// queue, change detector and status service; nothing is shared between sessions
// except the store they all read and write.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/celerix-dev/celerix-console/internal/detector"
	"github.com/celerix-dev/celerix-console/internal/ledger"
	"github.com/celerix-dev/celerix-console/internal/metrics"
	"github.com/celerix-dev/celerix-console/internal/notify"
	"github.com/celerix-dev/celerix-console/internal/schedule"
	"github.com/celerix-dev/celerix-console/internal/status"
	"github.com/celerix-dev/celerix-console/internal/vault"
	"github.com/celerix-dev/celerix-console/pkg/schema"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrTokenExpired       = errors.New("session expired")
)

// Settings configures the sessions a Manager opens.
type Settings struct {
	Username string
	Password string
	TTL      time.Duration
	// Key seals tokens. A nil key is replaced by a random one, which invalidates
	// tokens across restarts.
	Key []byte

	DefaultTTL       time.Duration
	DetectorTTL      time.Duration
	DetectorInterval time.Duration
	CodePrefix       string
}

// Claims are sealed inside a bearer token.
type Claims struct {
	SessionID string    `json:"sid"`
	Username  string    `json:"user"`
	ExpiresAt time.Time `json:"exp"`
}

// Session is one logged-in operator.
type Session struct {
	ID        string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time

	Queue    *notify.Queue
	Detector *detector.Detector
	Status   *status.Service

	expiry  *schedule.Task
	endOnce sync.Once
}

// end stops the detector and closes the queue, once.
func (s *Session) end() bool {
	ended := false
	s.endOnce.Do(func() {
		if s.expiry != nil {
			s.expiry.Stop()
		}
		s.Detector.Stop()
		s.Queue.Close()
		ended = true
	})
	return ended
}

// Manager opens, authenticates and ends sessions.
type Manager struct {
	store    sdk.CollectionStore
	sched    *schedule.Scheduler
	settings Settings
	chime    notify.Chime
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithChime sets the audio cue player of every session queue.
func WithChime(c notify.Chime) Option {
	return func(m *Manager) { m.chime = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager returns a Manager with no open sessions.
func NewManager(store sdk.CollectionStore, sched *schedule.Scheduler, settings Settings, opts ...Option) (*Manager, error) {
	if settings.Key == nil {
		key, err := vault.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generate token key: %w", err)
		}
		settings.Key = key
	}
	if len(settings.Key) != vault.KeySize {
		return nil, vault.ErrInvalidKey
	}
	if settings.TTL <= 0 {
		settings.TTL = 8 * time.Hour
	}

	m := &Manager{
		store:    store,
		sched:    sched,
		settings: settings,
		chime:    notify.NopChime{},
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m, nil
}

// Login checks the credentials, opens a session with a running detector and
// returns its bearer token.
func (m *Manager) Login(username, password string) (string, *Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.settings.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.settings.Password)) == 1
	if !userOK || !passOK || m.settings.Password == "" {
		m.logger.Warn("login rejected", slog.String("user", username))
		return "", nil, ErrInvalidCredentials
	}

	now := m.sched.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.settings.TTL),
	}

	token, err := vault.SealToken(Claims{SessionID: sess.ID, Username: username, ExpiresAt: sess.ExpiresAt}, m.settings.Key)
	if err != nil {
		return "", nil, fmt.Errorf("seal token: %w", err)
	}

	logger := m.logger.With(slog.String("session", sess.ID))
	sess.Queue = notify.NewQueue(m.sched,
		notify.WithChime(m.chime),
		notify.WithLogger(logger),
		notify.WithMetrics(m.metrics),
		notify.WithDefaultTTL(m.settings.DefaultTTL))
	sess.Status = status.New(m.store, ledger.New(m.sched),
		status.WithNotifier(sess.Queue),
		status.WithLogger(logger),
		status.WithMetrics(m.metrics),
		status.WithCodePrefix(m.settings.CodePrefix))
	sess.Detector = detector.New(m.store, sess.Queue, m.sched,
		detector.WithInterval(m.settings.DetectorInterval),
		detector.WithTTL(m.settings.DetectorTTL),
		detector.WithLogger(logger),
		detector.WithMetrics(m.metrics))

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	sess.expiry = m.sched.After(m.settings.TTL, func() { m.end(sess.ID, "expired") })
	m.mu.Unlock()

	m.persist(sess)
	m.metrics.SessionOpened()
	sess.Detector.Start()

	logger.Info("session opened", slog.String("user", username), slog.Time("expires_at", sess.ExpiresAt))
	return token, sess, nil
}

// persist records the latest session in the admin_session collection.
// Failure only costs the audit trail, so it is logged and ignored.
func (m *Manager) persist(sess *Session) {
	rec := schema.AdminSession{
		SessionID: sess.ID,
		Username:  sess.Username,
		IssuedAt:  sess.IssuedAt.UTC(),
		ExpiresAt: sess.ExpiresAt.UTC(),
	}
	if err := sdk.WriteAll(m.store, schema.CollectionAdminSession, []schema.AdminSession{rec}); err != nil {
		m.logger.Warn("could not persist admin session", slog.String("error", err.Error()))
	}
}

// Authenticate resolves a bearer token to its open session.
func (m *Manager) Authenticate(token string) (*Session, error) {
	var claims Claims
	if err := vault.OpenToken(token, m.settings.Key, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if !m.sched.Now().Before(claims.ExpiresAt) {
		m.end(claims.SessionID, "expired")
		return nil, ErrTokenExpired
	}

	m.mu.Lock()
	sess, ok := m.sessions[claims.SessionID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrInvalidToken
	}
	return sess, nil
}

// Logout ends the session behind token.
func (m *Manager) Logout(token string) error {
	sess, err := m.Authenticate(token)
	if err != nil {
		return err
	}
	m.end(sess.ID, "logout")
	return nil
}

// Active returns the number of open sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) end(id, reason string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	if sess.end() {
		m.metrics.SessionClosed()
		m.logger.Info("session ended", slog.String("session", id), slog.String("reason", reason))
	}
}

// Close ends every open session.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.end(id, "shutdown")
	}
}

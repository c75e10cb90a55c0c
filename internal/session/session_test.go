package session

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-console/internal/catalog"
	"github.com/celerix-dev/celerix-console/internal/engine"
	"github.com/celerix-dev/celerix-console/internal/metrics"
	"github.com/celerix-dev/celerix-console/internal/schedule"
	"github.com/celerix-dev/celerix-console/pkg/schema"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

var testSettings = Settings{
	Username: "admin",
	Password: "s3cret",
	TTL:      time.Hour,
	Key:      []byte("thisis32byteslongsecretkey123456"),
}

func newManager(t *testing.T, settings Settings) (*Manager, *engine.MemStore, *clock.Mock) {
	t.Helper()
	store := engine.NewMemStore(nil, nil)
	mock := clock.NewMock()
	m, err := NewManager(store, schedule.New(mock), settings, WithMetrics(metrics.New(prometheus.NewRegistry())))
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, store, mock
}

func TestLogin(t *testing.T) {
	m, store, _ := newManager(t, testSettings)

	_, _, err := m.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = m.Login("root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, sess, err := m.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotContains(t, token, sess.ID)
	assert.True(t, sess.Detector.Baseline().Initialized)
	assert.Equal(t, 1, m.Active())

	recs, err := sdk.ReadAll[schema.AdminSession](store, schema.CollectionAdminSession)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, sess.ID, recs[0].SessionID)
	assert.Equal(t, "admin", recs[0].Username)

	got, err := m.Authenticate(token)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestLogin_EmptyPasswordNeverMatches(t *testing.T) {
	s := testSettings
	s.Password = ""
	m, _, _ := newManager(t, s)
	_, _, err := m.Login("admin", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_Rejects(t *testing.T) {
	m, _, _ := newManager(t, testSettings)

	_, err := m.Authenticate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A token sealed with another key.
	other, _, _ := newManager(t, Settings{Username: "admin", Password: "s3cret", Key: []byte("another32byteslongsecretkey65432")})
	foreign, _, err := other.Login("admin", "s3cret")
	require.NoError(t, err)
	_, err = m.Authenticate(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionExpiry(t *testing.T) {
	m, _, mock := newManager(t, testSettings)
	token, sess, err := m.Login("admin", "s3cret")
	require.NoError(t, err)

	mock.Add(59 * time.Minute)
	_, err = m.Authenticate(token)
	require.NoError(t, err)

	mock.Add(time.Minute)
	_, err = m.Authenticate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, 0, m.Active())

	// The session's queue is closed along with it.
	assert.Equal(t, "", sess.Queue.Info("late", ""))
}

func TestLogout(t *testing.T) {
	m, store, mock := newManager(t, testSettings)
	token, sess, err := m.Login("admin", "s3cret")
	require.NoError(t, err)

	require.NoError(t, m.Logout(token))
	assert.Equal(t, 0, m.Active())
	assert.ErrorIs(t, m.Logout(token), ErrInvalidToken)

	// The detector no longer polls.
	require.NoError(t, sdk.WriteAll(store, schema.CollectionOrders, []schema.OrderRecord{{ID: "ord_1"}}))
	mock.Add(time.Minute)
	assert.Empty(t, sess.Queue.List())
}

func TestSessionsAreIndependent(t *testing.T) {
	m, store, mock := newManager(t, testSettings)
	_, a, err := m.Login("admin", "s3cret")
	require.NoError(t, err)
	_, b, err := m.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, sdk.WriteAll(store, schema.CollectionOrders, []schema.OrderRecord{{ID: "ord_1", Status: catalog.OrderPaid}}))
	mock.Add(10 * time.Second)

	// Both detectors saw the sale, each in its own queue.
	require.Len(t, a.Queue.List(), 1)
	require.Len(t, b.Queue.List(), 1)

	// A status update confirms only in the session that made it.
	ok, err := a.Status.UpdateOrderStatus("ord_1", catalog.OrderShipped, "admin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, a.Queue.List(), 2)
	assert.Len(t, b.Queue.List(), 1)
}

func TestClose(t *testing.T) {
	m, _, _ := newManager(t, testSettings)
	m.Login("admin", "s3cret")
	m.Login("admin", "s3cret")
	m.Close()
	assert.Equal(t, 0, m.Active())
}

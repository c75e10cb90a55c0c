package status

import (
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-console/internal/catalog"
	"github.com/celerix-dev/celerix-console/internal/engine"
	"github.com/celerix-dev/celerix-console/internal/ledger"
	"github.com/celerix-dev/celerix-console/internal/notify"
	"github.com/celerix-dev/celerix-console/pkg/schema"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (r *recordingNotifier) Push(n notify.Notification, _ ...notify.PushOption) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return n.Title
}

func (r *recordingNotifier) last() notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[len(r.items)-1]
}

// brokenStore fails every write.
type brokenStore struct {
	*engine.MemStore
}

func (brokenStore) Write(string, []byte) error { return errors.New("disk full") }

// unreadableStore fails every read.
type unreadableStore struct {
	*engine.MemStore
}

func (unreadableStore) Read(string) ([]byte, error) { return nil, errors.New("connection reset") }

func newService(t *testing.T, store sdk.CollectionStore) (*Service, *recordingNotifier, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Add(48 * time.Hour)
	n := &recordingNotifier{}
	return New(store, ledger.New(mock), WithNotifier(n)), n, mock
}

func seedOrders(t *testing.T, store sdk.CollectionWriter) {
	t.Helper()
	require.NoError(t, sdk.WriteAll(store, schema.CollectionOrders, []schema.OrderRecord{
		{
			ID:            "ord_1",
			Customer:      schema.OrderCustomer{Name: "Ana Souza"},
			Status:        catalog.OrderPaid,
			StatusHistory: []schema.LedgerEntry{{Status: "paid", Actor: "checkout"}},
		},
		{ID: "ord_2", Status: catalog.OrderPending},
	}))
}

func TestUpdateOrderStatus(t *testing.T) {
	store := engine.NewMemStore(nil, nil)
	seedOrders(t, store)
	svc, n, mock := newService(t, store)

	ok, err := svc.UpdateOrderStatus("ord_1", catalog.OrderShipped, "Admin", ledger.WithDescription("Postado"))
	require.NoError(t, err)
	assert.True(t, ok)

	order, found, err := svc.GetOrder("ord_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, catalog.OrderShipped, order.Status)
	require.Len(t, order.StatusHistory, 2)
	assert.Equal(t, "paid", order.StatusHistory[0].Status)
	last := order.StatusHistory[1]
	assert.Equal(t, "shipped", last.Status)
	assert.Equal(t, "Admin", last.Actor)
	assert.Equal(t, "Postado", last.Description)
	assert.True(t, last.Timestamp.Equal(mock.Now()))

	// Other orders are untouched.
	other, _, _ := svc.GetOrder("ord_2")
	assert.Equal(t, catalog.OrderPending, other.Status)
	assert.Empty(t, other.StatusHistory)

	assert.Equal(t, notify.CategorySuccess, n.last().Category)
	assert.Equal(t, "Status atualizado", n.last().Title)
	assert.Contains(t, n.last().Message, "Enviado")
}

func TestUpdateOrderStatus_NotFoundLeavesCollectionUnmodified(t *testing.T) {
	store := engine.NewMemStore(nil, nil)
	seedOrders(t, store)
	before, _ := store.Read(schema.CollectionOrders)
	svc, n, _ := newService(t, store)

	ok, err := svc.UpdateOrderStatus("ord_404", catalog.OrderShipped, "Admin")
	require.NoError(t, err)
	assert.False(t, ok)

	after, _ := store.Read(schema.CollectionOrders)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, notify.CategoryError, n.last().Category)
	assert.Equal(t, "Erro", n.last().Title)
}

func TestUpdateOrderStatus_UnknownStatusAccepted(t *testing.T) {
	store := engine.NewMemStore(nil, nil)
	seedOrders(t, store)
	svc, n, _ := newService(t, store)

	ok, err := svc.UpdateOrderStatus("ord_2", "on_hold", "")
	require.NoError(t, err)
	assert.True(t, ok)

	order, _, _ := svc.GetOrder("ord_2")
	assert.Equal(t, catalog.OrderStatus("on_hold"), order.Status)
	assert.Equal(t, ledger.DefaultActor, order.StatusHistory[0].Actor)
	assert.Contains(t, n.last().Message, "on_hold")
}

func TestUpdateOrderStatus_AnyTransitionAllowed(t *testing.T) {
	store := engine.NewMemStore(nil, nil)
	seedOrders(t, store)
	svc, _, _ := newService(t, store)

	for _, s := range []catalog.OrderStatus{catalog.OrderDelivered, catalog.OrderPending, catalog.OrderRefunded} {
		ok, err := svc.UpdateOrderStatus("ord_1", s, "Admin")
		require.NoError(t, err)
		require.True(t, ok)
	}
	order, _, _ := svc.GetOrder("ord_1")
	assert.Len(t, order.StatusHistory, 4)
	assert.Equal(t, catalog.OrderRefunded, order.Status)
}

func TestUpdateOrderStatus_WriteFailure(t *testing.T) {
	mem := engine.NewMemStore(nil, nil)
	seedOrders(t, mem)
	svc, n, _ := newService(t, brokenStore{mem})

	ok, err := svc.UpdateOrderStatus("ord_1", catalog.OrderShipped, "Admin")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, notify.CategoryError, n.last().Category)

	order, _, _ := svc.GetOrder("ord_1")
	assert.Len(t, order.StatusHistory, 1)
}

func TestUpdateOrderStatus_WithoutNotifier(t *testing.T) {
	store := engine.NewMemStore(nil, nil)
	seedOrders(t, store)
	svc := New(store, ledger.New(clock.NewMock()))

	ok, err := svc.UpdateOrderStatus("ord_1", catalog.OrderShipped, "Admin")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateAndUpdateTracking(t *testing.T) {
	store := engine.NewMemStore(nil, nil)
	svc, _, mock := newService(t, store)

	rec, err := svc.CreateTracking(NewTracking{
		OrderNumber:     "ord_1",
		CustomerName:    "João Silva",
		CustomerEmail:   "joao@example.com",
		DestinationCity: "Recife",
		Location:        "Agência Centro",
	}, "Admin")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^TRK[0-9A-F]{10}$`), rec.TrackingCode)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, catalog.TrackingPosted, rec.CurrentStatus)
	require.Len(t, rec.History, 1)
	assert.Equal(t, "Agência Centro", rec.History[0].Location)
	assert.True(t, rec.CreatedAt.Equal(mock.Now()))

	mock.Add(time.Hour)
	ok, err := svc.UpdateTrackingStatus(rec.ID, catalog.TrackingInTransit, "Admin", ledger.WithLocation("CD Recife"))
	require.NoError(t, err)
	assert.True(t, ok)

	got, found, err := svc.GetTracking(rec.TrackingCode)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, catalog.TrackingInTransit, got.CurrentStatus)
	assert.Len(t, got.History, 2)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestCreateTracking_RequiresOrderNumber(t *testing.T) {
	svc, n, _ := newService(t, engine.NewMemStore(nil, nil))
	_, err := svc.CreateTracking(NewTracking{CustomerName: "x"}, "Admin")
	assert.ErrorIs(t, err, ErrInvalidTracking)
	assert.Equal(t, notify.CategoryError, n.last().Category)
}

func TestCreateTracking_UniqueCodes(t *testing.T) {
	svc, _, _ := newService(t, engine.NewMemStore(nil, nil))
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		rec, err := svc.CreateTracking(NewTracking{OrderNumber: "ord"}, "Admin")
		require.NoError(t, err)
		assert.False(t, seen[rec.TrackingCode])
		seen[rec.TrackingCode] = true
	}
	all, _ := svc.ListTracking(TrackingFilter{})
	assert.Len(t, all, 50)
}

func TestListTracking_Filters(t *testing.T) {
	store := engine.NewMemStore(nil, nil)
	svc, _, _ := newService(t, store)
	a, _ := svc.CreateTracking(NewTracking{OrderNumber: "ord_1", CustomerName: "João Silva"}, "Admin")
	b, _ := svc.CreateTracking(NewTracking{OrderNumber: "ord_2", CustomerName: "Maria", CustomerEmail: "maria@loja.com"}, "Admin")
	svc.UpdateTrackingStatus(b.ID, catalog.TrackingDelivered, "Admin")

	byOrder, _ := svc.ListTracking(TrackingFilter{OrderNumber: "ord_1"})
	require.Len(t, byOrder, 1)
	assert.Equal(t, a.ID, byOrder[0].ID)

	byStatus, _ := svc.ListTracking(TrackingFilter{Status: catalog.TrackingDelivered})
	require.Len(t, byStatus, 1)
	assert.Equal(t, b.ID, byStatus[0].ID)

	byQuery, _ := svc.ListTracking(TrackingFilter{Query: "joao"})
	require.Len(t, byQuery, 1)
	assert.Equal(t, a.ID, byQuery[0].ID)

	byEmail, _ := svc.ListTracking(TrackingFilter{Query: "LOJA.COM"})
	assert.Len(t, byEmail, 1)

	byCode, _ := svc.ListTracking(TrackingFilter{Code: a.TrackingCode})
	assert.Len(t, byCode, 1)
}

func TestDeleteTracking(t *testing.T) {
	svc, n, _ := newService(t, engine.NewMemStore(nil, nil))
	a, _ := svc.CreateTracking(NewTracking{OrderNumber: "ord_1"}, "Admin")
	b, _ := svc.CreateTracking(NewTracking{OrderNumber: "ord_2"}, "Admin")

	ok, err := svc.DeleteTracking(a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.DeleteTracking(a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, notify.CategoryError, n.last().Category)

	all, _ := svc.ListTracking(TrackingFilter{})
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestUpdateTrackingStatus_NotFound(t *testing.T) {
	svc, _, _ := newService(t, engine.NewMemStore(nil, nil))
	ok, err := svc.UpdateTrackingStatus("missing", catalog.TrackingDelivered, "Admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "joao conceicao", fold("João Conceição"))
}

func TestTrackingStoreFailuresNotifyOperator(t *testing.T) {
	mem := engine.NewMemStore(nil, nil)
	seeded, _, _ := newService(t, mem)
	rec, err := seeded.CreateTracking(NewTracking{OrderNumber: "ord_1"}, "Admin")
	require.NoError(t, err)

	for name, store := range map[string]sdk.CollectionStore{
		"write": brokenStore{mem},
		"read":  unreadableStore{mem},
	} {
		t.Run(name, func(t *testing.T) {
			svc, n, _ := newService(t, store)

			_, err := svc.CreateTracking(NewTracking{OrderNumber: "ord_2"}, "Admin")
			require.Error(t, err)
			assert.Equal(t, notify.CategoryError, n.last().Category)
			assert.Equal(t, "Erro", n.last().Title)
			assert.Contains(t, n.last().Message, "ord_2")

			ok, err := svc.DeleteTracking(rec.ID)
			require.Error(t, err)
			assert.False(t, ok)
			assert.Equal(t, notify.CategoryError, n.last().Category)
			assert.Contains(t, n.last().Message, rec.ID)
		})
	}

	all, err := seeded.ListTracking(TrackingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

package ledger

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-console/internal/catalog"
	"github.com/celerix-dev/celerix-console/pkg/schema"
)

func TestAppend_Order(t *testing.T) {
	mock := clock.NewMock()
	mock.Add(time.Hour)
	l := New(mock)

	order := &schema.OrderRecord{
		ID:     "ord_1",
		Status: catalog.OrderPaid,
		StatusHistory: []schema.LedgerEntry{
			{Status: "paid", Actor: "checkout"},
		},
	}

	e := l.Append(order, string(catalog.OrderShipped), "Admin", WithDescription("Postado nos Correios"))

	assert.Equal(t, catalog.OrderShipped, order.Status)
	require.Len(t, order.StatusHistory, 2)
	assert.Equal(t, "paid", order.StatusHistory[0].Status)
	assert.Equal(t, e, order.StatusHistory[1])
	assert.Equal(t, "Admin", e.Actor)
	assert.Equal(t, "Postado nos Correios", e.Description)
	assert.Equal(t, mock.Now().UTC(), e.Timestamp)
	assert.Equal(t, e.Timestamp, order.UpdatedAt)
}

func TestAppend_TrackingWithLocation(t *testing.T) {
	l := New(clock.NewMock())
	rec := &schema.TrackingRecord{ID: "trk_1"}

	l.Append(rec, string(catalog.TrackingPosted), "Admin")
	e := l.Append(rec, string(catalog.TrackingHub), "Admin",
		WithLocation("Curitiba/PR"), WithDetails("Triagem"))

	assert.Equal(t, catalog.TrackingHub, rec.CurrentStatus)
	assert.Len(t, rec.History, 2)
	assert.Equal(t, "Curitiba/PR", e.Location)
	assert.Equal(t, "Triagem", e.Details)
}

func TestAppend_DefaultActor(t *testing.T) {
	l := New(clock.NewMock())
	rec := &schema.OrderRecord{}
	e := l.Append(rec, "paid", "")
	assert.Equal(t, DefaultActor, e.Actor)
}

func TestAppend_GrowsByExactlyOne(t *testing.T) {
	l := New(clock.NewMock())
	rec := &schema.OrderRecord{}
	statuses := []string{"pending", "paid", "delivered", "pending", "not_a_status"}
	for i, s := range statuses {
		before := len(rec.StatusHistory)
		l.Append(rec, s, "Admin")
		assert.Equal(t, before+1, len(rec.StatusHistory))
		assert.Equal(t, s, string(rec.Status), "step %d", i)
	}

	// Earlier entries are untouched.
	for i, s := range statuses {
		assert.Equal(t, s, rec.StatusHistory[i].Status)
	}
}

func TestCurrent(t *testing.T) {
	l := New(clock.NewMock())
	rec := &schema.TrackingRecord{}

	_, ok := Current(rec)
	assert.False(t, ok)

	l.Append(rec, "posted", "a")
	l.Append(rec, "in_transit", "b")
	cur, ok := Current(rec)
	require.True(t, ok)
	assert.Equal(t, "in_transit", cur.Status)
	assert.Equal(t, string(rec.CurrentStatus), cur.Status)
}

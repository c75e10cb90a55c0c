package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_LabelAndCategory(t *testing.T) {
	assert.Equal(t, "Enviado", OrderShipped.Label())
	assert.Equal(t, CategoryInProgress, OrderShipped.Category())
	assert.Equal(t, "Cancelado", OrderCancelled.Label())
	assert.Equal(t, CategoryDanger, OrderCancelled.Category())
	assert.True(t, OrderPaid.Known())
}

func TestTrackingStatus_LabelAndCategory(t *testing.T) {
	assert.Equal(t, "Objeto Postado", TrackingPosted.Label())
	assert.Equal(t, CategoryWarning, TrackingDeliveryAttempt.Category())
	assert.True(t, TrackingHub.Known())
}

func TestUnknownStatusDegrades(t *testing.T) {
	for _, raw := range []string{"", "lost_in_space", "SHIPPED", "delivered "} {
		assert.NotPanics(t, func() {
			assert.Equal(t, raw, OrderStatus(raw).Label())
			assert.Equal(t, raw, TrackingStatus(raw).Label())
		})
		assert.Equal(t, CategoryUnclassified, OrderStatus(raw).Category())
		assert.Equal(t, CategoryUnclassified, TrackingStatus(raw).Category())
		assert.False(t, OrderStatus(raw).Known())
	}
}

func TestEnumerationsAreIndependent(t *testing.T) {
	// Shared token, separate metadata.
	assert.True(t, OrderDelivered.Known())
	assert.True(t, TrackingDelivered.Known())

	assert.False(t, OrderStatus(TrackingOutForDelivery).Known())
	assert.False(t, TrackingStatus(OrderRefunded).Known())
	assert.Equal(t, "out_for_delivery", OrderStatus(TrackingOutForDelivery).Label())
}

func TestStatusListsAreOrderedCopies(t *testing.T) {
	orders := OrderStatuses()
	assert.Len(t, orders, 9)
	assert.Equal(t, string(OrderPending), orders[0].Value)
	assert.Equal(t, string(OrderRefunded), orders[len(orders)-1].Value)

	tracking := TrackingStatuses()
	assert.Len(t, tracking, 8)
	assert.Equal(t, string(TrackingPosted), tracking[0].Value)

	orders[0].Label = "mutated"
	assert.Equal(t, "Pendente", OrderPending.Label())
}

func TestDescribe(t *testing.T) {
	d := TrackingStatus("custom").Describe()
	assert.Equal(t, Descriptor{Value: "custom", Label: "custom", Category: CategoryUnclassified}, d)
}

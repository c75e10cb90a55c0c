// Package catalog enumerates the order and tracking statuses the console recognizes,
// together with their display labels and severity categories.
//
// The catalog describes statuses; it does not police them. Any status may follow any
// other, and values outside the enumeration are carried through unchanged.
package catalog

// Category is the severity tag a status renders with.
type Category string

const (
	CategoryInfo         Category = "info"
	CategoryPending      Category = "pending"
	CategoryInProgress   Category = "in_progress"
	CategorySuccess      Category = "success"
	CategoryWarning      Category = "warning"
	CategoryDanger       Category = "danger"
	CategoryUnclassified Category = "unclassified"
)

// OrderStatus is the lifecycle state of a store order.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderWaitingPayment OrderStatus = "waiting_payment"
	OrderPaid           OrderStatus = "paid"
	OrderProcessing     OrderStatus = "processing"
	OrderShipped        OrderStatus = "shipped"
	OrderDelivered      OrderStatus = "delivered"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderRefunded       OrderStatus = "refunded"
)

// TrackingStatus is the state of a shipment. It is a separate type from OrderStatus
// even though both enumerations contain "delivered".
type TrackingStatus string

const (
	TrackingPosted          TrackingStatus = "posted"
	TrackingInTransit       TrackingStatus = "in_transit"
	TrackingHub             TrackingStatus = "hub"
	TrackingOutForDelivery  TrackingStatus = "out_for_delivery"
	TrackingDeliveryAttempt TrackingStatus = "delivery_attempt"
	TrackingAwaitingPickup  TrackingStatus = "awaiting_pickup"
	TrackingDelivered       TrackingStatus = "delivered"
	TrackingReturned        TrackingStatus = "returned"
)

// Descriptor is the display metadata of one status value.
type Descriptor struct {
	Value    string   `json:"value"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
}

var orderStatuses = []Descriptor{
	{Value: string(OrderPending), Label: "Pendente", Category: CategoryPending},
	{Value: string(OrderWaitingPayment), Label: "Aguardando Pagamento", Category: CategoryWarning},
	{Value: string(OrderPaid), Label: "Pago", Category: CategoryInfo},
	{Value: string(OrderProcessing), Label: "Em Processamento", Category: CategoryInProgress},
	{Value: string(OrderShipped), Label: "Enviado", Category: CategoryInProgress},
	{Value: string(OrderDelivered), Label: "Entregue", Category: CategorySuccess},
	{Value: string(OrderCompleted), Label: "Concluído", Category: CategorySuccess},
	{Value: string(OrderCancelled), Label: "Cancelado", Category: CategoryDanger},
	{Value: string(OrderRefunded), Label: "Reembolsado", Category: CategoryWarning},
}

var trackingStatuses = []Descriptor{
	{Value: string(TrackingPosted), Label: "Objeto Postado", Category: CategoryInfo},
	{Value: string(TrackingInTransit), Label: "Em Trânsito", Category: CategoryInProgress},
	{Value: string(TrackingHub), Label: "No Centro de Distribuição", Category: CategoryInProgress},
	{Value: string(TrackingOutForDelivery), Label: "Saiu para Entrega", Category: CategoryInProgress},
	{Value: string(TrackingDeliveryAttempt), Label: "Tentativa de Entrega", Category: CategoryWarning},
	{Value: string(TrackingAwaitingPickup), Label: "Aguardando Retirada", Category: CategoryWarning},
	{Value: string(TrackingDelivered), Label: "Entregue", Category: CategorySuccess},
	{Value: string(TrackingReturned), Label: "Devolvido", Category: CategoryDanger},
}

var (
	orderIndex    = index(orderStatuses)
	trackingIndex = index(trackingStatuses)
)

func index(list []Descriptor) map[string]Descriptor {
	m := make(map[string]Descriptor, len(list))
	for _, d := range list {
		m[d.Value] = d
	}
	return m
}

// OrderStatuses returns the order statuses in lifecycle order.
func OrderStatuses() []Descriptor {
	return append([]Descriptor(nil), orderStatuses...)
}

// TrackingStatuses returns the tracking statuses in lifecycle order.
func TrackingStatuses() []Descriptor {
	return append([]Descriptor(nil), trackingStatuses...)
}

// Known reports whether s is one of the enumerated order statuses.
func (s OrderStatus) Known() bool {
	_, ok := orderIndex[string(s)]
	return ok
}

// Label returns the display label, or the raw value when s is not enumerated.
func (s OrderStatus) Label() string {
	return label(orderIndex, string(s))
}

// Category returns the severity tag, or CategoryUnclassified when s is not enumerated.
func (s OrderStatus) Category() Category {
	return category(orderIndex, string(s))
}

// Describe returns the full descriptor of s, degraded the same way as Label and Category.
func (s OrderStatus) Describe() Descriptor {
	return Descriptor{Value: string(s), Label: s.Label(), Category: s.Category()}
}

// Known reports whether s is one of the enumerated tracking statuses.
func (s TrackingStatus) Known() bool {
	_, ok := trackingIndex[string(s)]
	return ok
}

// Label returns the display label, or the raw value when s is not enumerated.
func (s TrackingStatus) Label() string {
	return label(trackingIndex, string(s))
}

// Category returns the severity tag, or CategoryUnclassified when s is not enumerated.
func (s TrackingStatus) Category() Category {
	return category(trackingIndex, string(s))
}

// Describe returns the full descriptor of s.
func (s TrackingStatus) Describe() Descriptor {
	return Descriptor{Value: string(s), Label: s.Label(), Category: s.Category()}
}

func label(idx map[string]Descriptor, v string) string {
	if d, ok := idx[v]; ok {
		return d.Label
	}
	return v
}

func category(idx map[string]Descriptor, v string) Category {
	if d, ok := idx[v]; ok {
		return d.Category
	}
	return CategoryUnclassified
}

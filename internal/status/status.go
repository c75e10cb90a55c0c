// Package status changes the status of orders and shipments in the shared store,
// appending to each record's ledger, and manages tracking records.
//
// Every operation reads the whole collection, changes it in memory and writes the
// whole collection back. Concurrent writers are not reconciled: the last write wins.
package status

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/celerix-dev/celerix-console/internal/catalog"
	"github.com/celerix-dev/celerix-console/internal/ledger"
	"github.com/celerix-dev/celerix-console/internal/metrics"
	"github.com/celerix-dev/celerix-console/internal/notify"
	"github.com/celerix-dev/celerix-console/pkg/schema"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

// Update results, also used as metric labels.
const (
	ResultUpdated  = "updated"
	ResultNotFound = "not_found"
	ResultFailed   = "failed"
)

var (
	// ErrInvalidTracking is returned when a new tracking record lacks its order number.
	ErrInvalidTracking = errors.New("order number is required")
)

// Notifier receives confirmation and error notifications. *notify.Queue implements it.
type Notifier interface {
	Push(n notify.Notification, opts ...notify.PushOption) string
}

// Service performs status transitions and tracking CRUD against a store.
type Service struct {
	store      sdk.CollectionStore
	ledger     *ledger.Ledger
	notifier   Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	codePrefix string
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where confirmations go. Without one, nothing is pushed.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCodePrefix sets the prefix of generated tracking codes.
func WithCodePrefix(p string) Option {
	return func(s *Service) {
		if p != "" {
			s.codePrefix = p
		}
	}
}

// New returns a Service stamping ledger entries with l.
func New(store sdk.CollectionStore, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		ledger:     l,
		codePrefix: DefaultCodePrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ledgeredRecord is a pointer to a stored record type carrying a ledger.
type ledgeredRecord[T any] interface {
	*T
	schema.Ledgered
	RecordID() string
}

// updateStatus is the shared read-modify-write of both collections. The record is
// located before anything is appended, so a missing id leaves the collection untouched.
func updateStatus[T any, P ledgeredRecord[T]](s *Service, collection, id, status, actor string, opts []ledger.EntryOption) (bool, error) {
	records, err := sdk.ReadAll[T](s.store, collection)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", collection, err)
	}

	idx := -1
	for i := range records {
		if P(&records[i]).RecordID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	s.ledger.Append(P(&records[idx]), status, actor, opts...)

	if err := sdk.WriteAll(s.store, collection, records); err != nil {
		return false, fmt.Errorf("write %s: %w", collection, err)
	}
	return true, nil
}

// UpdateOrderStatus moves order id to status and records the transition.
// It returns false with a nil error when no order has that id.
func (s *Service) UpdateOrderStatus(id string, status catalog.OrderStatus, actor string, opts ...ledger.EntryOption) (bool, error) {
	if !status.Known() {
		s.logger.Debug("accepting unrecognized order status", slog.String("status", string(status)))
	}
	ok, err := updateStatus[schema.OrderRecord](s, schema.CollectionOrders, id, string(status), actor, opts)
	s.report(schema.CollectionOrders, "Pedido", id, status.Label(), ok, err)
	return ok, err
}

// UpdateTrackingStatus moves tracking record id to status and records the transition.
// It returns false with a nil error when no record has that id.
func (s *Service) UpdateTrackingStatus(id string, status catalog.TrackingStatus, actor string, opts ...ledger.EntryOption) (bool, error) {
	if !status.Known() {
		s.logger.Debug("accepting unrecognized tracking status", slog.String("status", string(status)))
	}
	ok, err := updateStatus[schema.TrackingRecord](s, schema.CollectionTracking, id, string(status), actor, opts)
	s.report(schema.CollectionTracking, "Rastreio", id, status.Label(), ok, err)
	return ok, err
}

// report logs the outcome of an update, counts it, and tells the operator.
func (s *Service) report(collection, noun, id, label string, ok bool, err error) {
	switch {
	case err != nil:
		s.metrics.StatusUpdate(collection, ResultFailed)
		s.logger.Error("status update failed",
			slog.String("collection", collection), slog.String("id", id), slog.String("error", err.Error()))
		s.push(notify.CategoryError, "Erro", fmt.Sprintf("Não foi possível atualizar o status de %s", id))
	case !ok:
		s.metrics.StatusUpdate(collection, ResultNotFound)
		s.logger.Warn("status update target not found", slog.String("collection", collection), slog.String("id", id))
		s.push(notify.CategoryError, "Erro", fmt.Sprintf("%s %s não encontrado", noun, id))
	default:
		s.metrics.StatusUpdate(collection, ResultUpdated)
		s.logger.Info("status updated",
			slog.String("collection", collection), slog.String("id", id), slog.String("status", label))
		s.push(notify.CategorySuccess, "Status atualizado", fmt.Sprintf("%s %s agora está: %s", noun, id, label))
	}
}

func (s *Service) push(cat notify.Category, title, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Push(notify.Notification{Category: cat, Title: title, Message: msg})
}

// ListOrders returns every order in store order.
func (s *Service) ListOrders() ([]schema.OrderRecord, error) {
	return sdk.ReadAll[schema.OrderRecord](s.store, schema.CollectionOrders)
}

// GetOrder returns the order with id.
func (s *Service) GetOrder(id string) (schema.OrderRecord, bool, error) {
	orders, err := s.ListOrders()
	if err != nil {
		return schema.OrderRecord{}, false, err
	}
	for _, o := range orders {
		if o.ID == id {
			return o, true, nil
		}
	}
	return schema.OrderRecord{}, false, nil
}

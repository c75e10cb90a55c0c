// Package detector polls the shared store for new orders and customers and turns
// growth into operator notifications.
//
// A detector starts uninitialized. Its first cycle only records the current counts,
// so pre-existing data never produces a notification. Every later cycle compares
// the counts against that baseline and pushes at most one notification per collection.
package detector

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/celerix-dev/celerix-console/internal/metrics"
	"github.com/celerix-dev/celerix-console/internal/notify"
	"github.com/celerix-dev/celerix-console/internal/schedule"
	"github.com/celerix-dev/celerix-console/pkg/schema"
	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

const DefaultInterval = 10 * time.Second

// Cycle results, also used as metric labels.
const (
	ResultInitialized = "initialized"
	ResultUnchanged   = "unchanged"
	ResultNotified    = "notified"
	ResultSkipped     = "skipped"
)

// Pusher receives the detector's notifications. *notify.Queue implements it.
type Pusher interface {
	Push(n notify.Notification, opts ...notify.PushOption) string
}

// Baseline is the last observed collection sizes.
type Baseline struct {
	LastOrderCount    int  `json:"lastOrderCount"`
	LastCustomerCount int  `json:"lastCustomerCount"`
	Initialized       bool `json:"initialized"`
}

// Detector owns one session's baseline and polling task.
type Detector struct {
	store    sdk.CollectionReader
	pusher   Pusher
	sched    *schedule.Scheduler
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	printer  *message.Printer

	pollMu   sync.Mutex // one cycle at a time
	mu       sync.Mutex
	baseline Baseline
	task     *schedule.Task
	stopped  bool
	stopOnce sync.Once
}

// Option configures a Detector.
type Option func(*Detector)

// WithInterval sets the polling cadence.
func WithInterval(d time.Duration) Option {
	return func(d2 *Detector) {
		if d > 0 {
			d2.interval = d
		}
	}
}

// WithTTL sets the lifetime of new-sale and new-customer notifications.
func WithTTL(d time.Duration) Option {
	return func(det *Detector) {
		if d > 0 {
			det.ttl = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(det *Detector) { det.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(det *Detector) { det.metrics = m }
}

// New returns an uninitialized detector. Nothing is polled until Start or Poll.
func New(store sdk.CollectionReader, pusher Pusher, sched *schedule.Scheduler, opts ...Option) *Detector {
	d := &Detector{
		store:    store,
		pusher:   pusher,
		sched:    sched,
		interval: DefaultInterval,
		ttl:      notify.DetectorTTL,
		printer:  message.NewPrinter(language.BrazilianPortuguese),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Start runs the initializing cycle now and then polls every interval until Stop.
// Calling Start twice, or after Stop, does nothing.
func (d *Detector) Start() {
	d.mu.Lock()
	if d.stopped || d.task != nil {
		d.mu.Unlock()
		return
	}
	d.task = d.sched.Every(d.interval, func() { d.Poll() })
	d.mu.Unlock()

	d.Poll()
}

// Stop cancels polling. Only the first call has any effect; no cycle runs afterwards.
func (d *Detector) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.stopped = true
		if d.task != nil {
			d.task.Stop()
		}
		d.logger.Debug("change detector stopped")
	})
}

// Invalidate drops the baseline; the next cycle initializes again without notifying.
func (d *Detector) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseline = Baseline{}
}

// Baseline returns a snapshot of the current baseline.
func (d *Detector) Baseline() Baseline {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseline
}

// Poll runs one detection cycle and reports its result. Read or decode failures
// skip the cycle and leave the baseline untouched; they are logged, never returned.
// The store is read without holding the detector lock, so Stop never waits on a slow
// store; a cycle that finds the detector stopped once its reads return is discarded.
func (d *Detector) Poll() string {
	d.pollMu.Lock()
	defer d.pollMu.Unlock()

	if d.isStopped() {
		return ResultSkipped
	}
	orders, customers, ok := d.read()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ResultSkipped
	}

	result := ResultSkipped
	if ok {
		result = d.apply(orders, customers)
	}
	d.metrics.DetectorCycle(result)
	return result
}

func (d *Detector) isStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func (d *Detector) read() ([]schema.OrderRecord, []schema.CustomerRecord, bool) {
	orders, err := sdk.ReadAll[schema.OrderRecord](d.store, schema.CollectionOrders)
	if err != nil {
		d.logger.Warn("detector cycle skipped", slog.String("collection", schema.CollectionOrders), slog.String("error", err.Error()))
		return nil, nil, false
	}
	customers, err := sdk.ReadAll[schema.CustomerRecord](d.store, schema.CollectionCustomers)
	if err != nil {
		d.logger.Warn("detector cycle skipped", slog.String("collection", schema.CollectionCustomers), slog.String("error", err.Error()))
		return nil, nil, false
	}
	return orders, customers, true
}

// apply compares fresh counts with the baseline. Must be called with d.mu held.
func (d *Detector) apply(orders []schema.OrderRecord, customers []schema.CustomerRecord) string {
	if !d.baseline.Initialized {
		d.baseline = Baseline{
			LastOrderCount:    len(orders),
			LastCustomerCount: len(customers),
			Initialized:       true,
		}
		d.logger.Debug("detector baseline initialized",
			slog.Int("orders", len(orders)), slog.Int("customers", len(customers)))
		return ResultInitialized
	}

	result := ResultUnchanged

	if n := len(orders); n > d.baseline.LastOrderCount {
		d.pushSale(n-d.baseline.LastOrderCount, orders[n-1])
		result = ResultNotified
	} else if n < d.baseline.LastOrderCount {
		d.logger.Info("order count dropped, lowering baseline",
			slog.Int("from", d.baseline.LastOrderCount), slog.Int("to", n))
	}
	d.baseline.LastOrderCount = len(orders)

	if n := len(customers); n > d.baseline.LastCustomerCount {
		d.pushCustomer(n-d.baseline.LastCustomerCount, customers[n-1])
		result = ResultNotified
	} else if n < d.baseline.LastCustomerCount {
		d.logger.Info("customer count dropped, lowering baseline",
			slog.Int("from", d.baseline.LastCustomerCount), slog.Int("to", n))
	}
	d.baseline.LastCustomerCount = len(customers)

	return result
}

func (d *Detector) pushSale(delta int, latest schema.OrderRecord) {
	var msg string
	name := latest.Customer.Name
	switch {
	case delta == 1 && name != "":
		msg = d.printer.Sprintf("%s fez um pedido de %s", name, d.money(latest.Total))
	case delta == 1:
		msg = d.printer.Sprintf("Novo pedido de %s recebido", d.money(latest.Total))
	case name != "":
		msg = d.printer.Sprintf("%d novos pedidos. O último é de %s (%s)", delta, name, d.money(latest.Total))
	default:
		msg = d.printer.Sprintf("%d novos pedidos recebidos", delta)
	}

	d.pusher.Push(notify.Notification{
		Category: notify.CategorySuccess,
		Title:    "Nova venda!",
		Message:  msg,
		SoundKey: notify.SoundSale,
	}, notify.WithTTL(d.ttl))
	d.logger.Info("new sale detected", slog.Int("new_orders", delta), slog.String("order_id", latest.ID))
}

func (d *Detector) pushCustomer(delta int, latest schema.CustomerRecord) {
	var msg string
	switch {
	case delta == 1 && latest.Name != "":
		msg = d.printer.Sprintf("%s acabou de se cadastrar", latest.Name)
	case delta == 1:
		msg = "Um novo cliente se cadastrou"
	default:
		msg = d.printer.Sprintf("%d novos clientes cadastrados", delta)
	}

	d.pusher.Push(notify.Notification{
		Category: notify.CategorySuccess,
		Title:    "Novo cliente!",
		Message:  msg,
		SoundKey: notify.SoundCustomer,
	}, notify.WithTTL(d.ttl))
	d.logger.Info("new customer detected", slog.Int("new_customers", delta))
}

// money formats v as Brazilian reais, e.g. "R$ 1.234,50".
func (d *Detector) money(v float64) string {
	return d.printer.Sprintf("R$ %.2f", v)
}

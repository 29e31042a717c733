package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindspace/therapy-platform/internal/api/metrics"
	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	processTimeout = 5 * time.Second
)

// Dispatcher routes audit events to a fixed set of workers using consistent
// hashing on the principal email, so events for one principal keep their order.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	service ports.AuditService
	log     zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

var _ ports.AuditRecorder = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers, each with
// a channel of bufferSize. Non-positive values fall back to the defaults.
func NewDispatcher(numWorkers, bufferSize int, service ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if bufferSize <= 0 {
		bufferSize = channelBuffer
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, bufferSize)
	}
	return d
}

// Start launches all worker goroutines. Close is the only stop signal: ctx
// supplies values to event processing, but its cancellation does not stop the
// workers, so requests still in flight during shutdown keep being audited.
func (d *Dispatcher) Start(ctx context.Context) {
	procCtx := context.WithoutCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(procCtx, i, ch)
	}
}

// Record queues an event for the worker responsible for its email. It never
// blocks: when that worker's buffer is full, or the dispatcher is closed, the
// event is dropped and counted.
func (d *Dispatcher) Record(event domain.AuthEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	idx := d.shardIndex(shardKey(event))
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		d.drop(event, "worker queue full")
	}
}

// Close stops accepting events and waits for queued ones to be processed.
// Events still buffered when no worker is running are counted as dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	d.wg.Wait()

	for i, ch := range d.workers {
		for event := range ch {
			metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(i)).Dec()
			d.drop(event, "dispatcher closed before processing")
		}
	}
}

// Dropped returns how many events were discarded since start.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) drop(event domain.AuthEvent, reason string) {
	d.dropped.Add(1)
	metrics.AuditEventsTotal.WithLabelValues(string(event.Kind), "dropped").Inc()
	d.log.Warn().
		Str("kind", string(event.Kind)).
		Str("reason", reason).
		Msg("audit event dropped")
}

// shardKey is the email when known. Logout events only carry the principal id.
func shardKey(event domain.AuthEvent) string {
	if event.Email != "" {
		return event.Email
	}
	return event.PrincipalID
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()

	for event := range ch {
		d.handle(ctx, id, event)
	}
}

func (d *Dispatcher) handle(ctx context.Context, id int, event domain.AuthEvent) {
	metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id)).Dec()

	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	if err := d.service.Process(ctx, event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues(string(event.Kind), "failed").Inc()
		d.log.Error().Err(err).
			Str("kind", string(event.Kind)).
			Int("worker_id", id).
			Msg("audit event processing failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues(string(event.Kind), "stored").Inc()
}

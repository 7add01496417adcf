package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned by Enqueue once Stop has been called.
var ErrStopped = errors.New("dispatcher stopped")

// Ingester is the slice of ports.TelemetryService the workers call.
type Ingester interface {
	Ingest(ctx context.Context, in ports.TelemetryInput) error
}

// Dispatcher routes telemetry to a fixed set of workers using consistent
// hashing on the device id, so records from one device are stored in the
// order they were received.
type Dispatcher struct {
	workers []chan ports.TelemetryInput
	service Ingester
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service Ingester, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.TelemetryInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.TelemetryInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
}

// Stop refuses new records, lets the workers drain what is already buffered
// and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Enqueue hands a record to the worker responsible for its device. It blocks
// while that worker's buffer is full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, in ports.TelemetryInput) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	idx := d.shardIndex(in.DeviceID)
	select {
	case d.workers[idx] <- in:
		metrics.TelemetryQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueBatch enqueues records in order, preserving per-device ordering.
// It stops at the first failure and reports how many were accepted.
func (d *Dispatcher) EnqueueBatch(ctx context.Context, batch []ports.TelemetryInput) (int, error) {
	for i, in := range batch {
		if err := d.Enqueue(ctx, in); err != nil {
			return i, err
		}
	}
	return len(batch), nil
}

// shardIndex maps a device id deterministically to a worker index.
func (d *Dispatcher) shardIndex(deviceID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.TelemetryInput) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-ch:
			if !ok {
				return
			}
			metrics.TelemetryQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

			start := time.Now()
			if err := d.service.Ingest(ctx, in); err != nil {
				d.log.Error().Err(err).
					Str("device_id", in.DeviceID).
					Str("kind", string(in.Kind)).
					Int("worker_id", id).
					Msg("telemetry ingestion failed")
			}
			metrics.TelemetryProcessingDuration.WithLabelValues(string(in.Kind)).Observe(time.Since(start).Seconds())
		}
	}
}

package persist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phobos/squadai/internal/metrics"
)

// writeTimeout bounds each batch write.
const writeTimeout = 5 * time.Second

type batch struct {
	allocations []AllocationRecord
	switches    []SwitchRecord
}

func (b batch) size() int { return len(b.allocations) + len(b.switches) }

// Recorder buffers telemetry on the tick goroutine and hands full buffers to a
// background writer on Flush. Rows beyond the buffer limit, and batches that
// arrive while the writer is still busy, are dropped and counted.
type Recorder struct {
	session uuid.UUID
	sink    Sink
	log     *zap.Logger
	metrics *metrics.Metrics
	limit   int

	pending batch
	dropped int

	batches chan batch
	wg      sync.WaitGroup
	once    sync.Once
}

func NewRecorder(session uuid.UUID, sink Sink, limit int, log *zap.Logger, m *metrics.Metrics) *Recorder {
	if limit < 1 {
		limit = 1
	}
	r := &Recorder{
		session: session,
		sink:    sink,
		log:     log,
		metrics: m,
		limit:   limit,
		batches: make(chan batch, 1),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Dropped returns the number of rows discarded so far.
func (r *Recorder) Dropped() int { return r.dropped }

// Pending returns the number of buffered rows not yet flushed.
func (r *Recorder) Pending() int { return r.pending.size() }

func (r *Recorder) RecordAllocation(tick uint64, squadID, cellX, cellY, locationID int, category, via string) {
	if !r.reserve() {
		return
	}
	r.pending.allocations = append(r.pending.allocations, AllocationRecord{
		SessionID:  r.session,
		Tick:       tick,
		SquadID:    squadID,
		CellX:      cellX,
		CellY:      cellY,
		LocationID: locationID,
		Category:   category,
		Via:        via,
	})
}

func (r *Recorder) RecordSwitch(tick uint64, scheduler string, entityID int, from, to string) {
	if !r.reserve() {
		return
	}
	r.pending.switches = append(r.pending.switches, SwitchRecord{
		SessionID: r.session,
		Tick:      tick,
		Scheduler: scheduler,
		EntityID:  entityID,
		From:      from,
		To:        to,
	})
}

func (r *Recorder) reserve() bool {
	if r.pending.size() < r.limit {
		return true
	}
	r.drop(1)
	return false
}

func (r *Recorder) drop(n int) {
	r.dropped += n
	r.metrics.TelemetryDropped(n)
}

// Flush hands the buffered rows to the writer without blocking.
func (r *Recorder) Flush() {
	if r.pending.size() == 0 {
		return
	}
	b := r.pending
	r.pending = batch{}
	select {
	case r.batches <- b:
	default:
		r.log.Warn("telemetry writer busy, dropping batch", zap.Int("rows", b.size()))
		r.drop(b.size())
	}
}

// Close flushes what is buffered, waits for the writer and stops it.
func (r *Recorder) Close() {
	r.once.Do(func() {
		if b := r.pending; b.size() > 0 {
			r.pending = batch{}
			r.batches <- b
		}
		close(r.batches)
		r.wg.Wait()
	})
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for b := range r.batches {
		r.write(b)
	}
}

func (r *Recorder) write(b batch) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.sink.WriteAllocations(ctx, b.allocations); err != nil {
		r.log.Error("write allocation telemetry", zap.Int("rows", len(b.allocations)), zap.Error(err))
	}
	if err := r.sink.WriteSwitches(ctx, b.switches); err != nil {
		r.log.Error("write task switch telemetry", zap.Int("rows", len(b.switches)), zap.Error(err))
	}
	r.log.Debug("telemetry flushed",
		zap.Int("allocations", len(b.allocations)),
		zap.Int("switches", len(b.switches)),
	)
}

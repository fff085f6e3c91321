package graph

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Trendyol/go-pq-cdc/logger"
	"github.com/ezeql/go-pq-cdc-memgraph/cypher"
	"github.com/ezeql/go-pq-cdc-memgraph/internal/bytesize"
)

// Writer batches generated statements and flushes them to the
// executor on size, byte, or ticker triggers. The source position is
// acknowledged only after a successful flush so a crash replays
// instead of losing events.
type Writer struct {
	batch *batch
}

func NewWriter(executor Executor, cfg WriterConfig, responseHandler ResponseHandler) (Writer, error) {
	batchBytes, err := bytesize.ParseSize(cfg.BatchBytes)
	if err != nil {
		return Writer{}, fmt.Errorf("batchBytes parse: %w", err)
	}
	if batchBytes > bytesize.Size(math.MaxInt64) {
		return Writer{}, fmt.Errorf("batchBytes exceeds maximum: %d", batchBytes)
	}

	return Writer{
		batch: newBatch(
			cfg.BatchTickerDuration,
			cfg.BatchSize,
			int64(batchBytes), //nolint:gosec // G115: guarded by the check above
			cfg.MaxRetries,
			executor,
			responseHandler,
			cfg.SlotName,
		),
	}, nil
}

// WriterConfig is the writer's slice of the connector configuration.
type WriterConfig struct {
	BatchBytes          string
	SlotName            string
	BatchSize           int
	BatchTickerDuration time.Duration
	MaxRetries          int
}

func (w *Writer) StartBatchTicker() {
	w.batch.startTicker()
}

// Produce queues statements for the named stream. ack is acknowledged
// after the batch containing the last chunk is flushed; pass nil when
// the source has no acknowledgement concept.
func (w *Writer) Produce(ack Acker, eventTime time.Time, stream string, statements []cypher.Statement, isLastChunk bool) {
	w.batch.addStatements(ack, stream, statements, eventTime, isLastChunk)
}

func (w *Writer) Flush() {
	w.batch.flush()
}

func (w *Writer) Close() {
	w.batch.close()
}

func (w *Writer) GetMetric() Metric {
	return w.batch.metric
}

func (w *Writer) HasPendingStatements() bool {
	return w.batch.hasPending()
}

type batch struct {
	metric          Metric
	executor        Executor
	responseHandler ResponseHandler
	ticker          *time.Ticker
	lastAck         Acker
	statements      []cypher.Statement
	streams         []string
	batchLimit      int
	currentBytes    int64
	maxRetries      int
	batchBytes      int64
	tickerDuration  time.Duration
	flushLock       sync.Mutex
	pendingFlag     atomic.Bool
	statementCount  atomic.Int32
}

func newBatch(
	tickerDuration time.Duration,
	batchLimit int,
	batchBytes int64,
	maxRetries int,
	executor Executor,
	responseHandler ResponseHandler,
	slotName string,
) *batch {
	return &batch{
		tickerDuration:  tickerDuration,
		ticker:          time.NewTicker(tickerDuration),
		metric:          NewMetric(slotName),
		statements:      make([]cypher.Statement, 0, batchLimit),
		streams:         make([]string, 0, batchLimit),
		batchLimit:      batchLimit,
		batchBytes:      batchBytes,
		maxRetries:      maxRetries,
		executor:        executor,
		responseHandler: responseHandler,
	}
}

func (b *batch) startTicker() {
	go func() {
		for range b.ticker.C {
			b.flush()
		}
	}()
}

func (b *batch) close() {
	b.ticker.Stop()
	b.flush()
}

// hasPending returns true if there are unacknowledged statements.
// Uses atomics instead of the flush mutex to avoid lock contention on
// the hot path.
func (b *batch) hasPending() bool {
	return b.statementCount.Load() > 0 || b.pendingFlag.Load()
}

func (b *batch) addStatements(ack Acker, stream string, statements []cypher.Statement, eventTime time.Time, isLastChunk bool) {
	b.flushLock.Lock()
	for i := range statements {
		b.statements = append(b.statements, statements[i])
		b.streams = append(b.streams, stream)
		b.currentBytes += int64(len(statements[i].Query))
	}
	b.pendingFlag.Store(true)
	b.statementCount.Store(int32(min(len(b.statements), math.MaxInt32))) //nolint:gosec // G115: clamped to MaxInt32
	if isLastChunk && ack != nil {
		b.lastAck = ack
	}
	shouldFlush := len(b.statements) >= b.batchLimit || b.currentBytes >= b.batchBytes
	b.flushLock.Unlock()

	if isLastChunk {
		b.metric.SetProcessLatency(time.Since(eventTime).Nanoseconds())
	}
	if shouldFlush {
		b.flush()
	}
}

func (b *batch) flush() {
	b.flushLock.Lock()
	defer b.flushLock.Unlock()

	if len(b.statements) == 0 {
		return
	}

	var (
		flushSuccess bool
		err          error
	)
	started := time.Now()

	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if err = b.executor.ExecuteBatch(context.Background(), b.statements); err == nil {
			flushSuccess = true
			break
		}
		logger.Error("statement batch flush failed", "attempt", attempt+1, "error", err)
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}

	b.metric.SetFlushLatency(time.Since(started).Nanoseconds())

	if flushSuccess {
		b.reportSuccess()
	} else {
		b.reportError(err)
	}

	b.statements = b.statements[:0]
	b.streams = b.streams[:0]
	b.currentBytes = 0
	b.statementCount.Store(0)

	if flushSuccess {
		b.pendingFlag.Store(false)
		if b.lastAck != nil {
			if ackErr := b.lastAck.Ack(); ackErr != nil {
				logger.Error("ack", "error", ackErr)
			}
			b.lastAck = nil
		}
	} else {
		logger.Warn("flush failed, skipping ACK to preserve event ordering")
	}

	b.ticker.Reset(b.tickerDuration)
}

func (b *batch) reportSuccess() {
	counts := make(map[string]float64, 2)
	for _, stream := range b.streams {
		counts[stream]++
	}
	for stream, count := range counts {
		b.metric.AddSuccessOp(stream, count)
	}
	if b.responseHandler != nil {
		b.responseHandler.OnSuccess(&ResponseHandlerContext{Statements: b.statements})
	}
}

func (b *batch) reportError(err error) {
	counts := make(map[string]float64, 2)
	for _, stream := range b.streams {
		counts[stream]++
	}
	for stream, count := range counts {
		b.metric.AddErrOp(stream, count)
	}
	if b.responseHandler != nil {
		b.responseHandler.OnError(&ResponseHandlerContext{Statements: b.statements, Err: err})
	}
}

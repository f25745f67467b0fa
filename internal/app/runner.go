package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/basketdata/aisle-crawler/internal/clock/system"
	"github.com/basketdata/aisle-crawler/internal/dispatch"
	iduuid "github.com/basketdata/aisle-crawler/internal/id/uuid"
	"github.com/basketdata/aisle-crawler/internal/pipeline"
)

// Summary aggregates run totals for the closing log line.
type Summary struct {
	RunID        string
	Rows         int
	Successes    int
	Failures     int
	RendererUsed int
}

// outcomeMessage is the payload shape published per row.
type outcomeMessage struct {
	RunID   string              `json:"run_id"`
	Outcome pipeline.RowOutcome `json:"outcome"`
}

// Runner pulls rows from a source and drives the dispatcher. Rows may
// be processed by several workers in parallel; work inside a row stays
// sequential in the dispatcher.
type Runner struct {
	dispatcher *dispatch.Dispatcher
	sink       pipeline.Sink
	publisher  pipeline.Publisher
	topic      string
	workers    int
	logger     *zap.Logger
	clock      pipeline.Clock
	ids        *iduuid.Generator
	runID      string
}

// NewRunner wires a Runner.
func NewRunner(dispatcher *dispatch.Dispatcher, out pipeline.Sink, publisher pipeline.Publisher, topic string, workers int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		dispatcher: dispatcher,
		sink:       out,
		publisher:  publisher,
		topic:      topic,
		workers:    workers,
		logger:     logger,
		clock:      system.New(),
		ids:        iduuid.New(),
	}
}

// Run processes rows until the source drains or the context cancels.
// Cancellation is honored at row boundaries.
func (r *Runner) Run(ctx context.Context, source pipeline.RowSource) (Summary, error) {
	runID, err := r.ids.NewID()
	if err != nil {
		runID = "unknown"
	}
	r.runID = runID
	started := r.clock.Now()
	r.logger.Info("run starting",
		zap.String("run_id", runID),
		zap.Int("workers", r.workers),
	)

	rowsCh := make(chan pipeline.ProductRow)
	var (
		mu      sync.Mutex
		summary Summary
	)
	summary.RunID = runID

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rowsCh {
				outcome := r.dispatcher.ProcessRow(ctx, row)
				r.emit(ctx, row, outcome)

				mu.Lock()
				summary.Rows++
				if outcome.Best != nil {
					summary.Successes++
				} else {
					summary.Failures++
				}
				mu.Unlock()
			}
		}()
	}

	var readErr error
	for {
		if ctx.Err() != nil {
			break
		}
		row, err := source.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				readErr = fmt.Errorf("read row: %w", err)
			}
			break
		}
		select {
		case rowsCh <- row:
		case <-ctx.Done():
		}
	}
	close(rowsCh)
	wg.Wait()

	r.logger.Info("run complete",
		zap.String("run_id", runID),
		zap.Int("rows", summary.Rows),
		zap.Int("successes", summary.Successes),
		zap.Int("failures", summary.Failures),
		zap.Duration("elapsed", r.clock.Now().Sub(started)),
	)
	return summary, readErr
}

// emit writes the row's sink records and publishes the outcome when a
// publisher is configured. Emission failures are logged, not fatal: the
// run keeps its row cadence.
func (r *Runner) emit(ctx context.Context, row pipeline.ProductRow, outcome pipeline.RowOutcome) {
	records := dispatch.BuildRecords(row, outcome)
	if err := r.sink.Upsert(ctx, records); err != nil {
		r.logger.Error("sink upsert failed",
			zap.String("product_code", row.ProductCode),
			zap.Error(err),
		)
	}
	if r.publisher == nil || r.topic == "" {
		return
	}
	if _, err := r.publisher.Publish(ctx, r.topic, outcomeMessage{RunID: r.runID, Outcome: outcome}); err != nil {
		r.logger.Warn("outcome publish failed",
			zap.String("product_code", row.ProductCode),
			zap.Error(err),
		)
	}
}

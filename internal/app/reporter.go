package app

import (
	"context"
	"sync"
	"time"

	"sheet-quiz/internal/domain"
	"sheet-quiz/internal/metrics"

	"go.uber.org/zap"
)

// Reporter delivers finished sessions to its sinks in the background. The
// first sink is the spreadsheet endpoint; the rest are archives. Failures are
// logged and dropped, callers never wait on delivery.
type Reporter struct {
	sinks   []ResultSink
	log     *zap.Logger
	metrics *metrics.Metrics
	retries int
	backoff time.Duration
	sleep   func(time.Duration)

	wg sync.WaitGroup
}

// NewReporter returns a reporter that tries every sink exactly once.
func NewReporter(log *zap.Logger, m *metrics.Metrics, sinks ...ResultSink) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{
		sinks:   sinks,
		log:     log,
		metrics: m,
		sleep:   time.Sleep,
	}
}

// WithRetry makes each sink delivery try up to retries more times, backoff apart.
func (r *Reporter) WithRetry(retries int, backoff time.Duration) *Reporter {
	if retries < 0 {
		retries = 0
	}
	r.retries = retries
	r.backoff = backoff
	return r
}

// Submit queues payload for delivery and returns immediately.
func (r *Reporter) Submit(payload domain.ResultPayload) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx := context.Background()
		for i, sink := range r.sinks {
			r.deliver(ctx, i, sink, payload)
		}
	}()
}

func (r *Reporter) deliver(ctx context.Context, idx int, sink ResultSink, payload domain.ResultPayload) {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 && r.backoff > 0 {
			r.sleep(r.backoff)
		}
		if err = sink.SaveResult(ctx, payload); err == nil {
			r.metrics.ResultSaved(true)
			return
		}
	}
	r.metrics.ResultSaved(false)
	r.log.Error("saving result failed",
		zap.Int("sink", idx),
		zap.String("email", payload.Email),
		zap.Int("score", payload.Score),
		zap.Int("total", payload.Total),
		zap.Int("attempts", r.retries+1),
		zap.Error(err),
	)
}

// Wait blocks until every submitted payload has been handled.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

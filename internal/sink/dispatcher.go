package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"forexcal/internal/event"
	"forexcal/internal/logger"
	"forexcal/internal/metrics"
)

// Dispatch persists the run to every configured sink concurrently and
// collects one outcome per sink, in the order the sinks were configured.
// A panicking sink is reported as a failed outcome instead of taking the
// other sinks down with it.
func Dispatch(ctx context.Context, sinks []Sink, events []event.EconomicEvent, session event.ScrapeSession, log *logger.Logger) []Outcome {
	outcomes := make([]Outcome, len(sinks))

	var wg sync.WaitGroup
	for i, s := range sinks {
		wg.Add(1)
		go func(i int, s Sink) {
			defer wg.Done()
			outcomes[i] = persistOne(ctx, s, events, session, log)
		}(i, s)
	}
	wg.Wait()

	return outcomes
}

func persistOne(ctx context.Context, s Sink, events []event.EconomicEvent, session event.ScrapeSession, log *logger.Logger) (out Outcome) {
	start := time.Now()
	out = Outcome{Sink: s.Name()}

	defer func() {
		if r := recover(); r != nil {
			out.OK = false
			out.Error = fmt.Sprintf("panic: %v", r)
		}
		out.Duration = time.Since(start)
		status := "success"
		if !out.OK {
			status = "failure"
			log.Error("sink persist failed", logger.Fields{
				"sink":  s.Name(),
				"scope": fmt.Sprintf("%s %d", session.Month, session.Year),
			}, fmt.Errorf("%s", out.Error))
		} else {
			log.Info("sink persist succeeded", logger.Fields{
				"sink":   s.Name(),
				"events": len(events),
			})
		}
		metrics.SinkPersists.WithLabelValues(s.Name(), status).Inc()
	}()

	if err := s.Persist(ctx, events, session); err != nil {
		out.OK = false
		out.Error = err.Error()
		return out
	}
	out.OK = true
	return out
}

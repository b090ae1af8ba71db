package watcher

import (
	"context"
	"time"

	"github.com/ritzau/route-viewer/pkg/logging"
)

// Debouncer batches bursts of change events. A batch is emitted once the
// input has been quiet for quietPeriod, or maxWait after its first event,
// whichever comes first.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan []ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a debouncer reading from input
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan []ChangeEvent, 4),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start runs the debouncer until ctx is done or input is closed. Output is
// closed afterwards.
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// Output returns the channel of debounced batches
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		pending  []ChangeEvent
		quiet    *time.Timer
		deadline *time.Timer
	)
	stop := func() {
		if quiet != nil {
			quiet.Stop()
			quiet = nil
		}
		if deadline != nil {
			deadline.Stop()
			deadline = nil
		}
	}
	flush := func() {
		stop()
		if len(pending) == 0 {
			return
		}
		logging.Debug("flushing seed changes", "count", len(pending))
		select {
		case d.output <- pending:
		case <-ctx.Done():
		}
		pending = nil
	}
	timerC := func(t *time.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return

		case ev, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			pending = append(pending, ev)
			if quiet != nil {
				quiet.Stop()
			}
			quiet = time.NewTimer(d.quietPeriod)
			if deadline == nil {
				deadline = time.NewTimer(d.maxWait)
			}

		case <-timerC(quiet):
			quiet = nil
			flush()

		case <-timerC(deadline):
			deadline = nil
			flush()
		}
	}
}

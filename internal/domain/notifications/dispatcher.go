package notifications

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinDelay matches the NOTIFY_MIN_DELAY default.
const DefaultMinDelay = 600 * time.Millisecond

type SendObserver interface {
	Notification(templateID string, err error)
}

// Dispatcher sends messages one at a time with a fixed minimum delay between
// consecutive sends. A failed recipient does not stop the ones after it.
type Dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	observer SendObserver
}

// NewDispatcher paces sends by minDelay. Zero disables pacing; a negative
// value selects DefaultMinDelay.
func NewDispatcher(notifier Notifier, minDelay time.Duration) *Dispatcher {
	if minDelay < 0 {
		minDelay = DefaultMinDelay
	}
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &Dispatcher{notifier: notifier, limiter: rate.NewLimiter(limit, 1)}
}

func (d *Dispatcher) WithObserver(observer SendObserver) *Dispatcher {
	d.observer = observer
	return d
}

type RecipientError struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type Report struct {
	Sent   int              `json:"sent"`
	Failed int              `json:"failed"`
	Errors []RecipientError `json:"errors,omitempty"`
}

// Dispatch returns early only when ctx is done; the unsent remainder is counted as failed.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []Message) Report {
	var report Report
	for i, msg := range messages {
		if err := d.limiter.Wait(ctx); err != nil {
			for _, rest := range messages[i:] {
				report.Failed++
				report.Errors = append(report.Errors, RecipientError{Recipient: rest.Recipient.String(), Message: err.Error()})
			}
			return report
		}
		err := d.notifier.Send(ctx, msg.Recipient, msg.TemplateID, msg.Vars)
		if d.observer != nil {
			d.observer.Notification(msg.TemplateID, err)
		}
		if err != nil {
			slog.Warn("notification send failed", "template", msg.TemplateID, "recipient", msg.Recipient.String(), "err", err)
			report.Failed++
			report.Errors = append(report.Errors, RecipientError{Recipient: msg.Recipient.String(), Message: err.Error()})
			continue
		}
		report.Sent++
	}
	return report
}

package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	times []time.Time
	fail  map[string]bool
}

func (n *recordingNotifier) Send(ctx context.Context, recipient Recipient, templateID string, vars map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.times = append(n.times, time.Now())
	if n.fail[recipient.Email] {
		return errors.New("provider rejected recipient")
	}
	n.sent = append(n.sent, recipient.Email)
	return nil
}

type countingObserver struct {
	ok, failed int
}

func (o *countingObserver) Notification(templateID string, err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func messagesFor(emails ...string) []Message {
	out := make([]Message, 0, len(emails))
	for _, e := range emails {
		out = append(out, Message{Recipient: Recipient{TenantID: "t1", Email: e}, TemplateID: TemplateReportReady})
	}
	return out
}

func TestDispatchContinuesPastFailures(t *testing.T) {
	notifier := &recordingNotifier{fail: map[string]bool{"b@example.com": true}}
	observer := &countingObserver{}
	d := NewDispatcher(notifier, 0).WithObserver(observer)

	report := d.Dispatch(context.Background(), messagesFor("a@example.com", "b@example.com", "c@example.com"))

	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "b@example.com", report.Errors[0].Recipient)
	assert.Equal(t, []string{"a@example.com", "c@example.com"}, notifier.sent)
	assert.Equal(t, 2, observer.ok)
	assert.Equal(t, 1, observer.failed)
}

func TestDispatchSpacesSends(t *testing.T) {
	notifier := &recordingNotifier{}
	delay := 40 * time.Millisecond
	d := NewDispatcher(notifier, delay)

	report := d.Dispatch(context.Background(), messagesFor("a@example.com", "b@example.com", "c@example.com"))
	require.Equal(t, 3, report.Sent)
	require.Len(t, notifier.times, 3)
	for i := 1; i < len(notifier.times); i++ {
		gap := notifier.times[i].Sub(notifier.times[i-1])
		assert.GreaterOrEqual(t, gap, delay-5*time.Millisecond, "send %d came too early", i)
	}
}

func TestDispatchCancelledCountsRemainderAsFailed(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	// The first token is available immediately; the second wait fails once cancelled.
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	report := d.Dispatch(ctx, messagesFor("a@example.com", "b@example.com", "c@example.com"))

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 2, report.Failed)
}

func TestNewDispatcherPacing(t *testing.T) {
	assert.Equal(t, 600*time.Millisecond, DefaultMinDelay)
	assert.Equal(t, rate.Every(DefaultMinDelay), NewDispatcher(&recordingNotifier{}, -1).limiter.Limit())
	assert.Equal(t, rate.Every(time.Second), NewDispatcher(&recordingNotifier{}, time.Second).limiter.Limit())
	assert.Equal(t, rate.Inf, NewDispatcher(&recordingNotifier{}, 0).limiter.Limit())
}

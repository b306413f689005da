package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []EmailJobPayload
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) Send(to, subject, body, attachment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, EmailJobPayload{ToEmail: to, Subject: subject, Body: body, AttachmentPath: attachment})
	return nil
}

func TestEmailWorker_Sends(t *testing.T) {
	s := &fakeSender{}
	w := NewEmailWorker(s)
	raw, _ := json.Marshal(EmailJobPayload{ToEmail: "a@b.fr", Subject: "Ready", Body: "Come by"})

	require.NoError(t, w.Process(context.Background(), raw))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "a@b.fr", s.sent[0].ToEmail)
}

func TestEmailWorker_PermanentFailures(t *testing.T) {
	w := NewEmailWorker(&fakeSender{})

	err := w.Process(context.Background(), json.RawMessage(`{`))
	assert.ErrorIs(t, err, ErrPermanent)

	err = w.Process(context.Background(), json.RawMessage(`{"subject":"x"}`))
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestEmailWorker_TransientFailureIsRetryable(t *testing.T) {
	boom := errors.New("connection refused")
	w := NewEmailWorker(&fakeSender{err: boom})
	raw, _ := json.Marshal(EmailJobPayload{ToEmail: "a@b.fr"})

	err := w.Process(context.Background(), raw)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrPermanent)
}

func TestDispatcher_DisabledWithoutRedis(t *testing.T) {
	var d *Dispatcher
	assert.ErrorIs(t, d.EnqueueEmail(context.Background(), EmailJobPayload{}), ErrQueueDisabled)
	assert.ErrorIs(t, NewDispatcher(nil).EnqueueEmail(context.Background(), EmailJobPayload{}), ErrQueueDisabled)
}

type countingScanner struct{ n atomic.Int32 }

func (c *countingScanner) ScanLowStock(context.Context) (int, error) {
	c.n.Add(1)
	return 1, nil
}

func TestLowStockCron_TicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &countingScanner{}
	StartLowStockCron(ctx, s, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return s.n.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
}

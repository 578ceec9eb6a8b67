package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos-backoffice/internal/service"
)

// QueuedSale is a sale waiting to be delivered. Its request keeps the
// idempotency key it was created with across every replay.
type QueuedSale struct {
	Request   service.SaleRequest `json:"request"`
	QueuedAt  time.Time           `json:"queued_at"`
	Attempts  int                 `json:"attempts"`
	LastError string              `json:"last_error,omitempty"`
}

// RejectedError is a submission the server answered with a client error.
// Replaying it cannot succeed.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("sale rejected (%d): %s", e.Status, e.Message)
}

// Submitter delivers one sale request to the back office.
type Submitter interface {
	SubmitSale(ctx context.Context, req *service.SaleRequest) error
}

// ReplayReport describes one Replay pass.
type ReplayReport struct {
	Delivered int
	Dropped   []QueuedSale
	Remaining int
}

// Queue is a FIFO of undelivered sales.
type Queue struct {
	mu      sync.Mutex
	entries []QueuedSale
}

func (q *Queue) Enqueue(req *service.SaleRequest, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, QueuedSale{Request: *req, QueuedAt: at})
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy of the queue in delivery order.
func (q *Queue) Entries() []QueuedSale {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueuedSale, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) reset(entries []QueuedSale) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append([]QueuedSale(nil), entries...)
}

// Replay submits queued sales in order. Delivered and rejected entries leave
// the queue. The first transient failure stops the pass and keeps that entry
// and everything after it for the next attempt.
func (q *Queue) Replay(ctx context.Context, submitter Submitter) (ReplayReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var report ReplayReport
	for len(q.entries) > 0 {
		if err := ctx.Err(); err != nil {
			report.Remaining = len(q.entries)
			return report, err
		}

		entry := &q.entries[0]
		entry.Attempts++
		err := submitter.SubmitSale(ctx, &entry.Request)

		var rejected *RejectedError
		switch {
		case err == nil:
			report.Delivered++
		case errors.As(err, &rejected):
			entry.LastError = err.Error()
			report.Dropped = append(report.Dropped, *entry)
		default:
			entry.LastError = err.Error()
			report.Remaining = len(q.entries)
			return report, err
		}
		q.entries = q.entries[1:]
	}
	return report, nil
}

// Replay delivers the session's queued sales.
func (s *Session) Replay(ctx context.Context, submitter Submitter) (ReplayReport, error) {
	return s.Queue.Replay(ctx, submitter)
}

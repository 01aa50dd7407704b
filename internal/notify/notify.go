// Package notify delivers chat notices to users outside the request that
// produced them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Notice is a plain-text message addressed to one user.
type Notice struct {
	UserID int64
	Text   string
}

type Sender interface {
	Send(ctx context.Context, notice Notice) error
}

// Dispatcher sends notices either in the caller's flow (Deliver) or in the
// background (Dispatch). Background failures are logged and counted.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	failed  atomic.Int64
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
	}
}

// Deliver sends every notice and joins the failures.
func (d *Dispatcher) Deliver(ctx context.Context, notices ...Notice) error {
	var errs []error
	for _, n := range notices {
		if err := d.sender.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("notify user %d: %w", n.UserID, err))
		}
	}
	return errors.Join(errs...)
}

// Dispatch sends notices on a separate goroutine. The parent context's
// cancellation is not inherited.
func (d *Dispatcher) Dispatch(ctx context.Context, notices ...Notice) {
	if len(notices) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.Deliver(sendCtx, notices...); err != nil {
			log.WithFields(log.Fields{
				"notices": len(notices),
				"error":   err,
			}).Warn("Failed to deliver notices")
			d.failed.Add(1)
		}
	}()
}

// Failed returns how many background batches were not fully delivered.
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

// Wait blocks until every dispatched batch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

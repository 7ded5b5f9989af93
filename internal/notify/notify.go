// Package notify delivers issued license keys to purchasers and merchants.
// Delivery is best effort: failures are logged and counted, never returned
// to the settlement that triggered them.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"license-server/pkg/logging"
)

// Notice describes one issued license.
type Notice struct {
	Email      string
	LicenseKey string
	OrderNo    string
	DeviceID   string
	IssuedAt   time.Time
}

// Sink delivers a notice through one channel (email, webhook, ...).
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notice) error
}

// FailureHook observes failed deliveries, e.g. to count them.
type FailureHook func(sink string, err error)

// Dispatcher fans a notice out to every sink in the background.
type Dispatcher struct {
	sinks     []Sink
	timeout   time.Duration
	onFailure FailureHook
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Each delivery gets its own timeout.
func NewDispatcher(timeout time.Duration, onFailure FailureHook, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:     sinks,
		timeout:   timeout,
		onFailure: onFailure,
	}
}

// Dispatch starts delivery and returns immediately.
func (d *Dispatcher) Dispatch(n Notice) {
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			if err := d.deliver(sink, n); err != nil {
				logging.Errorf("Notification via %s failed - order: %s, email: %s, error: %v",
					sink.Name(), n.OrderNo, n.Email, err)
				if d.onFailure != nil {
					d.onFailure(sink.Name(), err)
				}
				return
			}
			logging.Infof("Notification via %s sent - order: %s, email: %s", sink.Name(), n.OrderNo, n.Email)
		}(sink)
	}
}

// Wait blocks until all in-flight deliveries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(sink Sink, n Notice) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	return sink.Send(ctx, n)
}

// LogSink only logs the notice. It stands in when no email provider is configured.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Send(_ context.Context, n Notice) error {
	logging.Infof("License issued (email delivery disabled) - order: %s, email: %s, license: %s",
		n.OrderNo, n.Email, logging.Mask(n.LicenseKey))
	return nil
}

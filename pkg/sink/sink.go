package sink

import (
	"context"
	"sync"

	model_reading "nas-collector/models/reading"
	"nas-collector/pkg/logger"

	"github.com/bytedance/gopkg/util/gopool"
)

const PoolCap int32 = 8

type Sink interface {
	Name() string
	Send(ctx context.Context, r model_reading.Reading) error
}

type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string {
	return e.Sink + " delivery failed: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Dispatcher delivers each reading to every sink, best effort.
type Dispatcher struct {
	Sinks []Sink
	Pool  gopool.Pool
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		Sinks: sinks,
		Pool:  gopool.NewPool("sink-dispatcher", PoolCap, gopool.NewConfig()),
	}
}

// Dispatch sends r to all sinks concurrently and waits for them. Failures
// are logged and returned for inspection; one failing sink never stops another.
func (d *Dispatcher) Dispatch(ctx context.Context, r model_reading.Reading) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, s := range d.Sinks {
		s := s
		wg.Add(1)
		d.Pool.CtxGo(ctx, func() {
			defer wg.Done()
			if err := s.Send(ctx, r); err != nil {
				deliveryErr := &DeliveryError{Sink: s.Name(), Err: err}
				logger.Warn().Err(err).Str("sink", s.Name()).Msg("sink delivery failed")
				mu.Lock()
				errs = append(errs, deliveryErr)
				mu.Unlock()
				return
			}
			logger.Debug().Str("sink", s.Name()).Msg("reading delivered")
		})
	}
	wg.Wait()
	return errs
}

// Names lists the configured sinks, for the startup log line.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.Sinks))
	for _, s := range d.Sinks {
		names = append(names, s.Name())
	}
	return names
}

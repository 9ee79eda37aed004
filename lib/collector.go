package lib

import (
	"context"
	"time"

	model_reading "nas-collector/models/reading"
	"nas-collector/pkg/disk"
	"nas-collector/pkg/logger"
)

type VendorClient interface {
	Login(ctx context.Context) (string, error)
	SystemTemperature(ctx context.Context, sid string) (int, error)
	Logout(ctx context.Context, sid string) error
}

type DiskSource interface {
	Collect(ctx context.Context) (map[string]model_reading.Temperature, map[int]model_reading.DiskRecord)
}

type ReadingBuilder interface {
	Build(cpu model_reading.Temperature, temps map[string]model_reading.Temperature, raw map[int]model_reading.DiskRecord) model_reading.Reading
}

type Dispatcher interface {
	Dispatch(ctx context.Context, r model_reading.Reading) []error
}

// Collector runs acquire, aggregate and dispatch once per interval.
type Collector struct {
	Vendor     VendorClient
	Disks      DiskSource
	Aggregator ReadingBuilder
	Dispatcher Dispatcher
	Interval   time.Duration
}

// Run loops until ctx is cancelled. Cycles never overlap.
func (c *Collector) Run(ctx context.Context) {
	for {
		c.RunOnce(ctx)

		timer := time.NewTimer(c.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Println("collector stopped")
			return
		case <-timer.C:
		}
	}
}

// RunOnce performs a single cycle. Every failure inside it is contained.
func (c *Collector) RunOnce(ctx context.Context) model_reading.Reading {
	logger.Println("send data")

	temps, raw := c.Disks.Collect(ctx)
	cpu := c.cpuTemperature(ctx)

	r := c.Aggregator.Build(cpu, temps, raw)
	logger.Info().
		Str("cpu", r.CPUTemperature.String()).
		Int("disks", len(r.DiskTemperatures)).
		Ints("bays", disk.SortedIndexes(r.DiskData)).
		Str("timestamp", r.Timestamp).
		Msg("reading collected")

	if errs := c.Dispatcher.Dispatch(ctx, r); len(errs) > 0 {
		logger.Warn().Int("failed", len(errs)).Msg("some sinks did not receive the reading")
	}
	return r
}

// cpuTemperature logs in, reads the temperature and logs out. A vendor API
// failure yields Unknown instead of aborting the cycle.
func (c *Collector) cpuTemperature(ctx context.Context) model_reading.Temperature {
	sid, err := c.Vendor.Login(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("dsm login failed, cpu temperature unknown")
		return model_reading.Unknown
	}
	defer func() {
		if err := c.Vendor.Logout(ctx, sid); err != nil {
			logger.Debug().Err(err).Msg("dsm logout failed")
		}
	}()

	temp, err := c.Vendor.SystemTemperature(ctx, sid)
	if err != nil {
		logger.Error().Err(err).Msg("dsm system info failed, cpu temperature unknown")
		return model_reading.Unknown
	}
	return model_reading.Celsius(temp)
}

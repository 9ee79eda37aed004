package aggregator

import (
	"time"

	model_reading "nas-collector/models/reading"
)

type Aggregator struct {
	Location *time.Location
	Now      func() time.Time
}

func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{Location: loc, Now: time.Now}
}

// Build stamps the inputs with one clock sample, truncated to the second so
// Timestamp and Time denote the same instant.
func (a *Aggregator) Build(cpu model_reading.Temperature, temps map[string]model_reading.Temperature, raw map[int]model_reading.DiskRecord) model_reading.Reading {
	now := a.Now().Truncate(time.Second).In(a.Location)

	if temps == nil {
		temps = map[string]model_reading.Temperature{}
	}
	if raw == nil {
		raw = map[int]model_reading.DiskRecord{}
	}

	return model_reading.Reading{
		CPUTemperature:   cpu,
		DiskTemperatures: temps,
		DiskData:         raw,
		Timestamp:        now.Format(model_reading.TimestampLayout),
		Time:             now,
	}
}

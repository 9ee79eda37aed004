package disk

import (
	"context"
	"math/big"
	"sort"
	"time"

	"nas-collector/connection"
	model_reading "nas-collector/models/reading"
	model_snmp "nas-collector/models/snmp"
	"nas-collector/pkg/logger"
	"nas-collector/util"

	g "github.com/gosnmp/gosnmp"
	"github.com/pkg/errors"
)

// Synology disk table (SYNOLOGY-DISK-MIB::diskTable).
const (
	NameOid        = "1.3.6.1.4.1.6574.2.1.1.2"
	ModelOid       = "1.3.6.1.4.1.6574.2.1.1.3"
	TemperatureOid = "1.3.6.1.4.1.6574.2.1.1.6"

	NonRepeaters   uint8  = 0
	MaxRepetitions uint32 = 10
)

var Oids = map[string]string{
	"name":        NameOid,
	"model":       ModelOid,
	"temperature": TemperatureOid,
}

type CollectionError struct {
	Err error
}

func (e *CollectionError) Error() string {
	return "snmp disk collection failed: " + e.Err.Error()
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

type DiskCollector struct {
	Connection model_snmp.SNMPConnectionConfig
	Timeout    time.Duration
	// NewSession is swapped out in tests.
	NewSession func(context.Context, model_snmp.SNMPConnectionConfig, time.Duration) connection.Session
}

func NewDiskCollector(conn model_snmp.SNMPConnectionConfig, timeout time.Duration) *DiskCollector {
	return &DiskCollector{
		Connection: conn,
		Timeout:    timeout,
		NewSession: func(ctx context.Context, c model_snmp.SNMPConnectionConfig, t time.Duration) connection.Session {
			return connection.NewSNMPv3Session(ctx, c, t)
		},
	}
}

// Collect returns the disk<idx> temperatures and the raw per-bay records.
// Any SNMP failure is logged and yields empty maps.
func (dc *DiskCollector) Collect(ctx context.Context) (map[string]model_reading.Temperature, map[int]model_reading.DiskRecord) {
	records, err := dc.fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("target", dc.Connection.Target).Msg("snmp disk query failed")
		return map[string]model_reading.Temperature{}, map[int]model_reading.DiskRecord{}
	}
	return Temperatures(records), records
}

func (dc *DiskCollector) fetch(ctx context.Context) (map[int]model_reading.DiskRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CollectionError{Err: err}
	}

	session := dc.NewSession(ctx, dc.Connection, dc.Timeout)
	if err := session.Connect(); err != nil {
		return nil, &CollectionError{Err: errors.Wrap(err, "connect")}
	}
	defer session.Close()

	packet, err := session.GetBulk([]string{NameOid, ModelOid, TemperatureOid}, NonRepeaters, MaxRepetitions)
	if err != nil {
		return nil, &CollectionError{Err: errors.Wrap(err, "getbulk")}
	}
	if packet.Error != g.NoError {
		return nil, &CollectionError{Err: errors.Errorf("error status %s at index %d", packet.Error, packet.ErrorIndex)}
	}
	return Records(packet.Variables), nil
}

// Records groups the bindings of the disk table by bay index. Bindings
// outside the three columns are ignored.
func Records(variables []g.SnmpPDU) map[int]model_reading.DiskRecord {
	records := map[int]model_reading.DiskRecord{}
	for _, variable := range variables {
		oid, value := model_snmp.GetSNMPValue(variable)
		if value == nil {
			continue
		}
		column := columnOf(oid)
		if column == "" {
			continue
		}
		index, ok := model_snmp.OidIndex(oid)
		if !ok {
			continue
		}

		record, seen := records[index]
		if !seen {
			record = model_reading.DiskRecord{Index: index, Temperature: model_reading.Unknown}
		}
		switch column {
		case "name":
			record.Name, _ = value.(string)
		case "model":
			record.Model, _ = value.(string)
		case "temperature":
			if n, ok := value.(*big.Int); ok && n.IsInt64() {
				record.Temperature = model_reading.Celsius(int(n.Int64()))
			}
		}
		records[index] = record
	}
	return records
}

// Temperatures labels each record disk<idx>.
func Temperatures(records map[int]model_reading.DiskRecord) map[string]model_reading.Temperature {
	temps := make(map[string]model_reading.Temperature, len(records))
	for index, record := range records {
		temps[model_reading.DiskLabel(index)] = record.Temperature
	}
	return temps
}

// SortedIndexes is used for stable log output.
func SortedIndexes(records map[int]model_reading.DiskRecord) []int {
	indexes := make([]int, 0, len(records))
	for index := range records {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	return indexes
}

func columnOf(oid string) string {
	return util.GetKeyByOid(Oids, oid)
}

package disk

import (
	"context"
	"errors"
	"testing"
	"time"

	"nas-collector/connection"
	model_reading "nas-collector/models/reading"
	model_snmp "nas-collector/models/snmp"

	g "github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	packet     *g.SnmpPacket
	connectErr error
	bulkErr    error

	oids           []string
	nonRepeaters   uint8
	maxRepetitions uint32
	bulkCalls      int
	closed         bool
	ctx            context.Context
}

func (f *fakeSession) Connect() error { return f.connectErr }

func (f *fakeSession) GetBulk(oids []string, nonRepeaters uint8, maxRepetitions uint32) (*g.SnmpPacket, error) {
	f.bulkCalls++
	f.oids = oids
	f.nonRepeaters = nonRepeaters
	f.maxRepetitions = maxRepetitions
	return f.packet, f.bulkErr
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func collectorWith(session *fakeSession) *DiskCollector {
	dc := NewDiskCollector(model_snmp.SNMPConnectionConfig{Target: "10.0.0.5", Username: "monitor", AuthKey: "authkey123"}, time.Second)
	dc.NewSession = func(ctx context.Context, _ model_snmp.SNMPConnectionConfig, _ time.Duration) connection.Session {
		session.ctx = ctx
		return session
	}
	return dc
}

func str(oid, v string) g.SnmpPDU {
	return g.SnmpPDU{Name: "." + oid, Type: g.OctetString, Value: []byte(v)}
}

func num(oid string, v int) g.SnmpPDU {
	return g.SnmpPDU{Name: "." + oid, Type: g.Integer, Value: v}
}

func TestCollectTwoDisks(t *testing.T) {
	session := &fakeSession{packet: &g.SnmpPacket{Variables: []g.SnmpPDU{
		str(NameOid+".1", "Disk 1"), str(ModelOid+".1", "WD40EFRX"), num(TemperatureOid+".1", 35),
		str(NameOid+".2", "Disk 2"), str(ModelOid+".2", "WD40EFRX"), num(TemperatureOid+".2", 38),
		// GETBULK overrun into the next columns.
		str("1.3.6.1.4.1.6574.2.1.1.4.1", "SATA"), num("1.3.6.1.4.1.6574.2.1.1.7.1", 1),
	}}}

	temps, raw := collectorWith(session).Collect(context.Background())

	assert.Equal(t, map[string]model_reading.Temperature{
		"disk1": model_reading.Celsius(35),
		"disk2": model_reading.Celsius(38),
	}, temps)
	assert.Equal(t, model_reading.DiskRecord{Index: 2, Name: "Disk 2", Model: "WD40EFRX", Temperature: model_reading.Celsius(38)}, raw[2])

	assert.Equal(t, []string{NameOid, ModelOid, TemperatureOid}, session.oids)
	assert.Equal(t, uint8(0), session.nonRepeaters)
	assert.Equal(t, uint32(10), session.maxRepetitions)
	assert.Equal(t, 1, session.bulkCalls)
	assert.True(t, session.closed)
}

func TestCollectMissingTemperatureIsUnknown(t *testing.T) {
	session := &fakeSession{packet: &g.SnmpPacket{Variables: []g.SnmpPDU{
		str(NameOid+".0", "Disk 1"), str(ModelOid+".0", "ST4000VN"), num(TemperatureOid+".0", 31),
		str(NameOid+".4", "Disk 5"), str(ModelOid+".4", "ST4000VN"),
		{Name: "." + TemperatureOid + ".4", Type: g.NoSuchInstance},
	}}}

	temps, raw := collectorWith(session).Collect(context.Background())

	require.Contains(t, temps, "disk4")
	assert.Equal(t, model_reading.Unknown, temps["disk4"])
	assert.NotEqual(t, model_reading.Celsius(0), temps["disk4"])
	assert.Equal(t, model_reading.Celsius(31), temps["disk0"])
	assert.Equal(t, "Disk 5", raw[4].Name)
	assert.Equal(t, []int{0, 4}, SortedIndexes(raw))
}

func TestCollectNonContiguousBays(t *testing.T) {
	var variables []g.SnmpPDU
	for _, index := range []string{"3", "17", "120"} {
		variables = append(variables, num(TemperatureOid+"."+index, 40))
	}
	session := &fakeSession{packet: &g.SnmpPacket{Variables: variables}}

	temps, _ := collectorWith(session).Collect(context.Background())
	assert.Len(t, temps, 3)
	assert.Contains(t, temps, "disk3")
	assert.Contains(t, temps, "disk17")
	assert.Contains(t, temps, "disk120")
}

func TestCollectDegradesToEmpty(t *testing.T) {
	cases := map[string]*fakeSession{
		"error status": {packet: &g.SnmpPacket{Error: g.AuthorizationError, ErrorIndex: 1}},
		"request":      {bulkErr: errors.New("request timeout (after 0 retries)")},
		"connect":      {connectErr: errors.New("dial udp: no route to host")},
	}
	for name, session := range cases {
		t.Run(name, func(t *testing.T) {
			temps, raw := collectorWith(session).Collect(context.Background())
			assert.NotNil(t, temps)
			assert.Empty(t, temps)
			assert.Empty(t, raw)
		})
	}
}

func TestFetchReturnsCollectionError(t *testing.T) {
	dc := collectorWith(&fakeSession{packet: &g.SnmpPacket{Error: g.GenErr}})
	_, err := dc.fetch(context.Background())
	var collectionErr *CollectionError
	require.ErrorAs(t, err, &collectionErr)
}

func TestCollectCancelledContext(t *testing.T) {
	session := &fakeSession{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	temps, _ := collectorWith(session).Collect(ctx)
	assert.Empty(t, temps)
	assert.Equal(t, 0, session.bulkCalls)
}

func TestCollectPassesContextToSession(t *testing.T) {
	session := &fakeSession{packet: &g.SnmpPacket{}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collectorWith(session).Collect(ctx)
	assert.Equal(t, ctx, session.ctx)
}

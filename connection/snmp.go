package connection

import (
	"context"
	"time"

	model_snmp "nas-collector/models/snmp"

	g "github.com/gosnmp/gosnmp"
)

// Session is the part of a gosnmp connection the collectors use.
type Session interface {
	Connect() error
	GetBulk(oids []string, nonRepeaters uint8, maxRepetitions uint32) (*g.SnmpPacket, error)
	Close() error
}

type SNMPSession struct {
	*g.GoSNMP
}

func (s *SNMPSession) Close() error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}

// NewSNMPv3Session prepares an authNoPriv session with SHA authentication.
// Cancelling ctx aborts an in-flight request. Connect still has to be called.
func NewSNMPv3Session(ctx context.Context, params model_snmp.SNMPConnectionConfig, timeout time.Duration) *SNMPSession {
	port := params.Port
	if port == 0 {
		port = 161
	}
	return &SNMPSession{GoSNMP: &g.GoSNMP{
		Context:       ctx,
		Target:        params.Target,
		Port:          uint16(port),
		Transport:     "udp",
		Version:       g.Version3,
		Timeout:       timeout,
		Retries:       0,
		MaxOids:       g.MaxOids,
		SecurityModel: g.UserSecurityModel,
		MsgFlags:      g.AuthNoPriv,
		SecurityParameters: &g.UsmSecurityParameters{
			UserName:                 params.Username,
			AuthenticationProtocol:   g.SHA,
			AuthenticationPassphrase: params.AuthKey,
			PrivacyProtocol:          g.NoPriv,
		},
	}}
}

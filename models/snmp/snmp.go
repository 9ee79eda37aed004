package snmp

import (
	"strconv"
	"strings"

	g "github.com/gosnmp/gosnmp"
)

type SNMPConnectionConfig struct {
	Target   string `json:"target"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	AuthKey  string `json:"-"`
}

// TrimOid drops the leading dot gosnmp puts on every name.
func TrimOid(oid string) string {
	name, _ := strings.CutPrefix(oid, ".")
	return name
}

// OidIndex returns the trailing numeric component of oid.
func OidIndex(oid string) (int, bool) {
	i := strings.LastIndex(oid, ".")
	if i == -1 || i == len(oid)-1 {
		return 0, false
	}
	index, err := strconv.Atoi(oid[i+1:])
	if err != nil {
		return 0, false
	}
	return index, true
}

func GetSNMPValue(variable g.SnmpPDU) (oid string, value interface{}) {
	oid = TrimOid(variable.Name)

	switch variable.Type {
	case g.OctetString:
		bytes, _ := variable.Value.([]byte)
		value = strings.TrimRight(string(bytes), "\x00")
	case g.NoSuchObject, g.NoSuchInstance, g.EndOfMibView, g.Null:
		value = nil
	default:
		value = g.ToBigInt(variable.Value)
	}
	return
}

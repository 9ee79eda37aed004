package util

import (
	"strings"

	"nas-collector/pkg/logger"
)

func FailOnError(err error, msg string) {
	if err != nil {
		logger.Error().Err(err).Msg(msg)
	}
}

// GetKeyByOid returns the key whose oid is a strict ancestor of oid.
// Leading dots on either side are ignored.
func GetKeyByOid(m map[string]string, oid string) string {
	oid = strings.TrimPrefix(oid, ".")
	for k, v := range m {
		if strings.HasPrefix(oid, strings.TrimPrefix(v, ".")+".") {
			return k
		}
	}
	return ""
}

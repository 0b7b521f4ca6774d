// Package xid mints prefixed opaque identifiers for sessions, submit
// attempts and demo invoices.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns "prefix-<unixnano>-<hex>"; if the random source fails the
// timestamp alone still keeps ids unique enough for their uses here.
func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

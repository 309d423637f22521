package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var counter atomic.Uint64

// New returns a prefixed id that is unique even for same-instant calls:
// a nanosecond timestamp plus a per-process monotonic counter, with a random
// suffix to keep ids from separate processes apart.
func New(prefix string) string {
	seq := counter.Add(1)
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq)
	}
	return fmt.Sprintf("%s-%d-%d-%s", prefix, time.Now().UnixNano(), seq, hex.EncodeToString(buf))
}

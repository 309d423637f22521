package kv

import "context"

// Store is a minimal key-value boundary for ledger persistence. A record is
// one JSON document per key; Get reports found=false when the key has never
// been written.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

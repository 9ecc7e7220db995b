package redis

import (
	"github.com/redis/go-redis/v9"
)

// Client wraps redis.UniversalClient so stores depend on this package only.
// Tests use miniredis or redismock rather than a generated mock.
type Client interface {
	redis.UniversalClient
}

// Nil is returned by reads of missing keys
const Nil = redis.Nil

// TxFailedErr is returned when a watched key changed before EXEC
const TxFailedErr = redis.TxFailedErr

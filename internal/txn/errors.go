package txn

import "errors"

var (
	errPoolClosed = errors.New("txn: pool is closed")
	errSaturated  = errors.New("txn: pool is saturated")
)

package revexpire

import (
	"fmt"
	"time"
)

// nowReal returns the current wall-clock time as fractional seconds since
// the Unix epoch — the Go equivalent of VTIM_real().
func nowReal() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// panicf is the sole formatting wrapper around panic, used by invariant().
func panicf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}

package camera

import (
	"errors"
	"fmt"
)

// ErrCamera is the single domain error for setup failures: unknown drivers,
// missing or rejecting plugin symbols and invalid taxonomy lookups.
var ErrCamera = errors.New("camera error")

func camErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCamera, fmt.Sprintf(format, args...))
}

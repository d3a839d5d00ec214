package rotator

import "errors"

// ErrEmptyPool indicates a pool was created without elements.
var ErrEmptyPool = errors.New("rotator: pool must contain at least one item")

package engine

import "errors"

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("engine is closed")

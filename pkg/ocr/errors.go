package ocr

import "errors"

// ErrNoText is returned when recognition completes but yields no text.
var ErrNoText = errors.New("no text detected")

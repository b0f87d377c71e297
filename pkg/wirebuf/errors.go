package wirebuf

import "github.com/pkg/errors"

// ErrReadOverflow is returned by the throwing read form when fewer than the
// required bits remain in the buffer.
var ErrReadOverflow = errors.New("wirebuf: read overflow")

// ErrInvalidBitCount is returned when a caller requests a bit width outside
// an API's supported range (e.g. 33 bits from the 1-32 API). It marks a
// programmer error: fix the call site, don't handle it at runtime.
var ErrInvalidBitCount = errors.New("wirebuf: invalid bit count")

// ErrMalformedVarint marks a varint that ran past its maximum byte count
// without a terminating (non-continuation) byte. Per the current policy
// (see DESIGN.md), callers get the partial value back, not this error; it
// exists so a reimplementation that chooses to raise it has a sentinel.
var ErrMalformedVarint = errors.New("wirebuf: malformed varint")

package walog

import "errors"

// ErrIO reports a failure appending to or syncing the journal file.
// Callers must use errors.Is(err, ErrIO).
var ErrIO = errors.New("walog: io error")

// ErrClosed reports an operation attempted after the log was closed.
var ErrClosed = errors.New("walog: closed")

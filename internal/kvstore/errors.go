package kvstore

import "errors"

// ErrClosed is returned by any mutating or query operation invoked after
// the Store has left the Open state.
var ErrClosed = errors.New("kvstore: store is not open")

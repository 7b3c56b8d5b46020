package client

import "errors"

// ErrServer wraps an "error" status response from the Dispatcher; the
// message is the wire error code (e.g. "unknown_op", "invalid_items").
var ErrServer = errors.New("client: server error")

// ErrUnexpectedStatus is returned when a response's status does not match
// any of the statuses that operation's wire contract allows.
var ErrUnexpectedStatus = errors.New("client: unexpected response status")

// ErrClosed is returned by any call made after Close.
var ErrClosed = errors.New("client: connection is closed")

package dispatch

import (
	"encoding/json"

	"github.com/agentkv/kvstored/internal/kvstore"
)

// handleRequest dispatches one parsed request against backend and returns
// the response to write back. Every outcome, including a malformed or
// unsupported request and a backend failure, becomes an error response on
// the wire, per the spec's "per-request errors are local" policy; the
// connection stays open either way.
func handleRequest(backend Backend, req request) response {
	switch req.Op {
	case "set":
		return handleSet(backend, req)
	case "get":
		return handleGet(backend, req)
	case "delete":
		return handleDelete(backend, req)
	case "bulk_set":
		return handleBulkSet(backend, req)
	default:
		return response{Status: statusError, Error: errUnknownOp}
	}
}

func handleSet(backend Backend, req request) response {
	key, keyOK := coerceScalar(req.Key)
	value, valueOK := coerceScalar(req.Value)

	if !keyOK || !valueOK {
		return response{Status: statusError, Error: errMissingKeyValue}
	}

	if err := backend.Set(key, value); err != nil {
		return response{Status: statusError, Error: errKind(err)}
	}

	return response{Status: statusOK}
}

func handleGet(backend Backend, req request) response {
	key, ok := coerceScalar(req.Key)
	if !ok {
		return response{Status: statusError, Error: errMissingKey}
	}

	value, found, err := backend.Get(key)
	if err != nil {
		return response{Status: statusError, Error: errKind(err)}
	}

	if !found {
		return response{Status: statusNotFound}
	}

	return response{Status: statusOK, Value: value}
}

func handleDelete(backend Backend, req request) response {
	key, ok := coerceScalar(req.Key)
	if !ok {
		return response{Status: statusError, Error: errMissingKey}
	}

	existed, err := backend.Delete(key)
	if err != nil {
		return response{Status: statusError, Error: errKind(err)}
	}

	deleted := existed

	return response{Status: statusOK, Deleted: &deleted}
}

func handleBulkSet(backend Backend, req request) response {
	if req.Items == nil {
		return response{Status: statusError, Error: errInvalidItems}
	}

	items := make([]kvstore.KV, 0, len(req.Items))

	for _, pair := range req.Items {
		if len(pair) != 2 {
			return response{Status: statusError, Error: errInvalidItems}
		}

		key, keyOK := scalarToString(pair[0])
		value, valueOK := scalarToString(pair[1])

		if !keyOK || !valueOK {
			return response{Status: statusError, Error: errInvalidItems}
		}

		items = append(items, kvstore.KV{Key: key, Value: value})
	}

	if err := backend.BulkSet(items); err != nil {
		return response{Status: statusError, Error: errKind(err)}
	}

	return response{Status: statusOK}
}

// errKind maps any backend failure to the wire error string. The spec
// names a wire kind only for the dispatcher's own parse/validate failures
// plus IoError; every backend error (a closed store, a failed fsync, a
// cluster that can't reach quorum) surfaces to the client as io_error.
func errKind(error) string {
	return "io_error"
}

// parseRequest unmarshals one wire line into a request, reporting
// invalid_json as the spec requires rather than propagating the decode
// error. An "items" field that is not a list of lists leaves req.Items nil,
// so handleBulkSet answers invalid_items instead of invalid_json.
func parseRequest(line []byte) (request, bool) {
	var raw struct {
		request
		Items json.RawMessage `json:"items,omitempty"`
	}

	if err := json.Unmarshal(line, &raw); err != nil {
		return request{}, false
	}

	req := raw.request
	if err := json.Unmarshal(raw.Items, &req.Items); err != nil {
		req.Items = nil
	}

	return req, true
}

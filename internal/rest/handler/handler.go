// Package handler contains the REST endpoint implementations.
package handler

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/uptrace/bunrouter"
)

// ErrMissingUser is returned when a request carries no user identity.
var ErrMissingUser = errors.New("missing X-User-ID header")

// userID extracts the caller identity. Authentication proper happens at the
// gateway; the API trusts the forwarded header.
func userID(req bunrouter.Request) (string, error) {
	id := req.Header.Get("X-User-ID")
	if id == "" {
		return "", ErrMissingUser
	}

	return id, nil
}

// eventStream prepares the response for server-sent events and returns the
// flusher, or an error when the connection cannot stream.
func eventStream(w http.ResponseWriter) (http.Flusher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	return flusher, nil
}

// sendEvent writes one named SSE event and flushes it.
func sendEvent(w http.ResponseWriter, flusher http.Flusher, name string, payload any) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return
	}

	_, _ = w.Write([]byte("event: " + name + "\ndata: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
	flusher.Flush()
}

package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the gateway receives a routed request. The
// context carries the request ID.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published after the response has been written.
type HTTPFinish struct {
	Request *http.Request
	// Route is the matched route template, e.g. "/graphql".
	Route  string
	Status int
	// Forwarded is set when the request was proxied to the upstream.
	Forwarded bool
	Duration  time.Duration
}

package routes

import (
	"net/http"
	"time"
)

const readHeaderTimeout = 10 * time.Second

// NewServer wraps handler in an http.Server. onShutdown hooks run as soon as
// Shutdown starts; they must end long-lived streams so connections go idle.
func NewServer(addr string, handler http.Handler, onShutdown ...func()) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	for _, hook := range onShutdown {
		if hook != nil {
			server.RegisterOnShutdown(hook)
		}
	}
	return server
}

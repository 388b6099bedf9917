package client

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Request is a transport agnostic HTTP request
type Request struct {
	Method string
	URL    string
	Header map[string]string
}

// Response is the part of the HTTP response the client needs
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport executes signed requests
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// BackendFactory builds a transport from the client configuration
type BackendFactory func(cfg Config) (Transport, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]BackendFactory{
		"http":     newHTTPTransport,
		"fasthttp": newFastHTTPTransport,
		"fiber":    newFiberTransport,
	}
)

// RegisterBackend makes a transport available under name. Registering
// an existing name replaces it.
func RegisterBackend(name string, factory BackendFactory) {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return
	}
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// Backends returns the registered backend names, sorted
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasBackend reports whether name is registered
func HasBackend(name string) bool {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	_, ok := backends[name]
	return ok
}

func lookupBackend(name string) (BackendFactory, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, UnknownBackendError(name)
	}
	return factory, nil
}

// UnknownBackendError describes an unregistered backend name
func UnknownBackendError(name string) *ConfigError {
	return &ConfigError{
		Setting: "LATCH_HTTP_BACKEND",
		Message: fmt.Sprintf(
			"The LATCH_HTTP_BACKEND setting cannot be %s, the only valid values are %s.",
			name, quotedList(Backends()),
		),
	}
}

func quotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " or " + quoted[len(quoted)-1]
}

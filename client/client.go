// Package client talks to the remote latch service. It signs requests
// with the application credentials and delegates the HTTP exchange to a
// pluggable Transport selected by name from the backend registry.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://latch.tu.com"
	DefaultBackend = "http"
	DefaultTimeout = 10 * time.Second

	apiPrefix  = "/api/1.0"
	dateFormat = "2006-01-02 15:04:05"

	HeaderAuthorization = "Authorization"
	HeaderDate          = "X-11Paths-Date"
	authScheme          = "11PATHS"
)

const (
	StatusOn  = "on"
	StatusOff = "off"
)

// Status is the live latch state reported for an account
type Status struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
}

// IsOn reports whether the latch is engaged
func (s *Status) IsOn() bool {
	return s != nil && s.Status == StatusOn
}

// Client is the remote latch API
type Client interface {
	Pair(ctx context.Context, token string) (string, error)
	Unpair(ctx context.Context, accountID string) error
	Status(ctx context.Context, accountID string) (*Status, error)
}

// Config holds the application credentials and transport selection
type Config struct {
	AppID     string
	SecretKey string
	Backend   string
	BaseURL   string
	Timeout   time.Duration

	// HTTPClient is only used by the "http" backend.
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// API is the signed latch client
type API struct {
	config    Config
	transport Transport
	now       func() time.Time
}

var _ Client = (*API)(nil)

// New validates cfg and builds a client over the configured backend
func New(cfg Config) (*API, error) {
	cfg = cfg.withDefaults()

	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, &ConfigError{Setting: "LATCH_APP_ID", Message: "The LATCH_APP_ID setting must not be empty."}
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, &ConfigError{Setting: "LATCH_SECRET_KEY", Message: "The LATCH_SECRET_KEY setting must not be empty."}
	}

	factory, err := lookupBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	transport, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("latch backend %q: %w", cfg.Backend, err)
	}

	return NewWithTransport(cfg, transport), nil
}

// NewWithTransport builds a client over an explicit transport
func NewWithTransport(cfg Config, transport Transport) *API {
	return &API{
		config:    cfg.withDefaults(),
		transport: transport,
		now:       time.Now,
	}
}

// Backend returns the name of the configured backend
func (a *API) Backend() string {
	return a.config.Backend
}

func (a *API) Pair(ctx context.Context, token string) (string, error) {
	var data struct {
		AccountID string `json:"accountId"`
	}
	if err := a.call(ctx, "pair", "/pair/"+url.PathEscape(token), &data); err != nil {
		return "", err
	}
	if data.AccountID == "" {
		return "", &Error{Operation: "pair", Message: "response did not include an account id"}
	}
	return data.AccountID, nil
}

func (a *API) Unpair(ctx context.Context, accountID string) error {
	return a.call(ctx, "unpair", "/unpair/"+url.PathEscape(accountID), nil)
}

func (a *API) Status(ctx context.Context, accountID string) (*Status, error) {
	var data struct {
		Operations map[string]struct {
			Status string `json:"status"`
		} `json:"operations"`
	}
	if err := a.call(ctx, "status", "/status/"+url.PathEscape(accountID), &data); err != nil {
		return nil, err
	}

	if op, ok := data.Operations[a.config.AppID]; ok {
		return &Status{OperationID: a.config.AppID, Status: op.Status}, nil
	}
	if len(data.Operations) == 1 {
		for id, op := range data.Operations {
			return &Status{OperationID: id, Status: op.Status}, nil
		}
	}

	return nil, &Error{Operation: "status", Message: "response did not include the application status"}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *API) call(ctx context.Context, op, path string, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	path = apiPrefix + path
	date := a.now().UTC().Format(dateFormat)
	req := &Request{
		Method: http.MethodGet,
		URL:    a.config.BaseURL + path,
		Header: map[string]string{
			HeaderAuthorization: authorizationHeader(a.config.AppID, Sign(a.config.SecretKey, http.MethodGet, date, "", path)),
			HeaderDate:          date,
		},
	}

	resp, err := a.transport.Do(ctx, req)
	if err != nil {
		return &Error{Operation: op, Message: "request failed", Err: err}
	}

	var env envelope
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			if resp.StatusCode >= http.StatusMultipleChoices {
				return &Error{Operation: op, Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
			}
			return &Error{Operation: op, Message: "invalid response body", Err: err}
		}
	}

	if env.Error != nil {
		return &Error{Operation: op, Code: env.Error.Code, Message: env.Error.Message}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return &Error{Operation: op, Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Operation: op, Message: "invalid response data", Err: err}
		}
	}

	return nil
}

func authorizationHeader(appID, signature string) string {
	return authScheme + " " + appID + " " + signature
}

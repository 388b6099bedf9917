package client

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

type fasthttpTransport struct {
	client  *fasthttp.Client
	timeout time.Duration
}

func newFastHTTPTransport(cfg Config) (Transport, error) {
	return &fasthttpTransport{
		client: &fasthttp.Client{
			Name:                "go-latch",
			MaxResponseBodySize: maxResponseBytes,
		},
		timeout: cfg.Timeout,
	}, nil
}

func (t *fasthttpTransport) Do(ctx context.Context, r *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL)
	req.Header.SetMethod(r.Method)
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")

	if err := t.client.DoTimeout(req, resp, remaining(ctx, t.timeout)); err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       append([]byte(nil), resp.Body()...),
	}, nil
}

// remaining caps the transport timeout by the context deadline
func remaining(ctx context.Context, timeout time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			return left
		}
	}
	return timeout
}

package client

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type fiberTransport struct {
	timeout time.Duration
}

func newFiberTransport(cfg Config) (Transport, error) {
	return &fiberTransport{timeout: cfg.Timeout}, nil
}

func (t *fiberTransport) Do(ctx context.Context, r *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agent := fiber.AcquireAgent()
	defer fiber.ReleaseAgent(agent)

	req := agent.Request()
	req.Header.SetMethod(r.Method)
	req.SetRequestURI(r.URL)
	for k, v := range r.Header {
		agent.Set(k, v)
	}
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Timeout(remaining(ctx, t.timeout)).Reuse()

	if err := agent.Parse(); err != nil {
		return nil, err
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Response{
		StatusCode: code,
		Body:       append([]byte(nil), body...),
	}, nil
}

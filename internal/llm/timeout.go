package llm

import (
	"context"
	"time"
)

// TimeoutClient bounds every completion with a deadline so a slow provider
// cannot stall a conversation turn indefinitely.
type TimeoutClient struct {
	inner   Client
	timeout time.Duration
}

// WithTimeout wraps client. A non-positive timeout returns the client as is.
func WithTimeout(client Client, timeout time.Duration) Client {
	if client == nil || timeout <= 0 {
		return client
	}
	return &TimeoutClient{inner: client, timeout: timeout}
}

func (c *TimeoutClient) Complete(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Complete(ctx, req)
}

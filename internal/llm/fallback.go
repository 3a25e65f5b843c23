package llm

import (
	"context"

	"github.com/dgarridoc/citabot/pkg/logging"
)

// FallbackClient tries a primary provider and retries once against a backup
// when the primary errors. The dialogue manager sees a single Client.
type FallbackClient struct {
	primary Client
	backup  Client
	logger  *logging.Logger
}

// NewFallbackClient wraps primary with an optional backup. backup may be nil,
// in which case failures surface directly.
func NewFallbackClient(primary, backup Client, logger *logging.Logger) *FallbackClient {
	if primary == nil {
		panic("llm: primary client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{primary: primary, backup: backup, logger: logger}
}

// Complete runs the request against the primary and falls back on error.
func (c *FallbackClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting backup",
		"error", err.Error(),
		"backup_available", c.backup != nil,
	)

	if c.backup == nil {
		return Response{}, err
	}

	backupResp, backupErr := c.backup.Complete(ctx, req)
	if backupErr != nil {
		c.logger.Error("backup LLM also failed",
			"primary_error", err.Error(),
			"backup_error", backupErr.Error(),
		)
		return Response{}, backupErr
	}

	c.logger.Info("backup LLM succeeded after primary failure")
	return backupResp, nil
}

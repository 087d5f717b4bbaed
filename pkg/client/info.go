package client

import (
	"context"

	"github.com/capsim/capsim/internal/api"
	"github.com/capsim/capsim/internal/buildinfo"
	"github.com/capsim/capsim/internal/core"
)

func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url().
		setPath(api.AboutRoute).
		build(), &info)
	return &info, correlation, err
}

// ListRuns retrieves the latest simulation run log entries from the server,
// limited to the specified number.
func (c *Client) ListRuns(ctx context.Context, limit uint) ([]core.AuditEntry, error) {
	var resp []core.AuditEntry
	_, err := c.get(ctx, c.url().
		setPath(api.ListAuditsRoute).
		addQueryParam("limit", limit).
		build(), &resp)
	return resp, err
}

package client

import (
	"context"

	"github.com/capsim/capsim/internal/api"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/service"
)

// Simulate runs a baseline/candidate comparison on the server and returns
// the decision pairs plus the classified impact report.
func (c *Client) Simulate(ctx context.Context, payload api.SimulatePayload) (*service.SimulateResult, string, error) {
	var result service.SimulateResult
	correlation, err := c.post(ctx, c.url().
		setPath(api.SimulateRoute).
		build(), payload, &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

// Explain traces one user/context pairing on the server.
func (c *Client) Explain(ctx context.Context, payload api.ExplainPayload) (*core.EvaluationTrace, string, error) {
	var trace core.EvaluationTrace
	correlation, err := c.post(ctx, c.url().
		setPath(api.ExplainRoute).
		build(), payload, &trace)
	if err != nil {
		return nil, correlation, err
	}
	return &trace, correlation, nil
}

// ReloadPolicies swaps the server's baseline policy set.
func (c *Client) ReloadPolicies(ctx context.Context, payload api.ReloadPayload) (string, error) {
	return c.post(ctx, c.url().
		setPath(api.ReloadPoliciesRoute).
		build(), payload, nil)
}

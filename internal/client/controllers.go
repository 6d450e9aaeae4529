package client

import (
	"context"

	"github.com/google/uuid"

	"smartbin/portal/internal/model"
	"smartbin/portal/pkg/fetch"
)

// StatsQuery polls fleet stats. opts.RefetchInterval sets the period.
func (c *Client) StatsQuery(opts fetch.Options[*model.FleetStats]) *fetch.Query[*model.FleetStats] {
	return fetch.NewQuery(c.Stats, opts)
}

// OverviewQuery loads the HQ overview.
func (c *Client) OverviewQuery(opts fetch.Options[*model.Overview]) *fetch.Query[*model.Overview] {
	return fetch.NewQuery(c.Overview, opts)
}

// BinsPaged pages through the bins visible to the session.
func (c *Client) BinsPaged(opts fetch.PagedOptions[fetch.Page[model.Bin]]) *fetch.Paged[fetch.Page[model.Bin]] {
	return fetch.NewPaged(c.ListBins, opts)
}

// FillVars are the arguments of a fill report.
type FillVars struct {
	ID    uuid.UUID
	Level int
}

func (c *Client) FillMutation(opts fetch.MutationOptions[*model.Bin]) *fetch.Mutation[FillVars, *model.Bin] {
	return fetch.NewMutation(func(ctx context.Context, v FillVars) (*model.Bin, error) {
		return c.ReportFill(ctx, v.ID, v.Level)
	}, opts)
}

func (c *Client) EmptyMutation(opts fetch.MutationOptions[*model.Bin]) *fetch.Mutation[uuid.UUID, *model.Bin] {
	return fetch.NewMutation(c.EmptyBin, opts)
}

// Package source supplies Kp sample tables to the temporal index. The
// GFZ type fetches and parses the authoritative upstream table; Cache
// wraps any Source with an on-disk materialization so repeated loads
// skip the network.
package source

import "github.com/swxkit/kpindex/pkg/types"

// Source supplies the full current set of Kp samples.
//
// Load returns every known (instant, Kp) pair, grid-aligned and in UTC.
// With force=false an implementation may reuse a previously materialized
// table; with force=true it must re-derive the table from the
// authoritative upstream. Loads are blocking; an implementation that
// needs a timeout enforces it internally.
type Source interface {
	Load(force bool) ([]types.Sample, error)
}

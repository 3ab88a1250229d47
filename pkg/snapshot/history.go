package snapshot

import (
	"context"
	"fmt"
)

// History walks the chain backwards from id and returns the snapshots newest
// first. A limit of zero or less walks to the first snapshot of the lineage.
func History(ctx context.Context, backend Backend, id string, limit int) ([]Snapshot, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	var (
		out  []Snapshot
		seen = make(map[string]struct{})
	)
	for next := id; next != ""; {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, loop := seen[next]; loop {
			return out, fmt.Errorf("%w at %s", ErrChainCycle, next)
		}
		seen[next] = struct{}{}

		snap, err := backend.Get(ctx, next)
		if IsNotFound(err) {
			if len(out) == 0 {
				return nil, err
			}
			return out, fmt.Errorf("%w: %s", ErrBrokenChain, next)
		}
		if err != nil {
			return out, err
		}
		out = append(out, snap)
		next = snap.PreviousID
	}
	return out, nil
}

package resource

import (
	"context"

	"github.com/relicta-tech/resourcekit/pkg/version"
)

// AllVersionsFetcher enumerates every version currently available at the
// source of truth, in any order.
type AllVersionsFetcher interface {
	FetchAllVersions(ctx context.Context) ([]version.Ordered, error)
}

// Guided orders and filters versions on the resource author's behalf. Embed
// it and point Fetcher at the embedding resource; Check then applies the
// standard policy using the versions' natural order:
//
//  1. No previous version, nothing discovered: emit nothing.
//  2. No previous version: emit the full discovered list, oldest first.
//  3. Previous version still present: emit it and everything after it.
//  4. Previous version gone from the source of truth: emit only the newest
//     current version, resynchronizing the pipeline.
//
// Resources that manage their own monotonic identifiers can implement Check
// directly instead.
type Guided struct {
	Fetcher AllVersionsFetcher
}

// Check applies the standard check policy over the fetched version set.
func (g Guided) Check(ctx context.Context, prev version.Version) ([]version.Version, error) {
	all, err := g.Fetcher.FetchAllVersions(ctx)
	if err != nil {
		return nil, err
	}

	// Treat the fetched collection as a set, then order it oldest first.
	seen := make(map[string]struct{}, len(all))
	ordered := make([]version.Ordered, 0, len(all))
	for _, v := range all {
		fp, err := version.Fingerprint(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		ordered = append(ordered, v)
	}
	version.Sort(ordered)

	if prev == nil {
		return widen(ordered), nil
	}

	prevFP, err := version.Fingerprint(prev)
	if err != nil {
		return nil, err
	}
	for i, v := range ordered {
		fp, err := version.Fingerprint(v)
		if err != nil {
			return nil, err
		}
		if fp == prevFP {
			return widen(ordered[i:]), nil
		}
	}

	// The previous version vanished upstream (deleted or rotated). Emit the
	// single newest version as a resynchronization signal.
	if len(ordered) == 0 {
		return nil, nil
	}
	return widen(ordered[len(ordered)-1:]), nil
}

func widen(ordered []version.Ordered) []version.Version {
	out := make([]version.Version, len(ordered))
	for i, v := range ordered {
		out[i] = v
	}
	return out
}

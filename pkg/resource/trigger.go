package resource

import (
	"context"

	"github.com/relicta-tech/resourcekit/pkg/version"
)

// LatestFetcher reports the single current state of the source of truth.
type LatestFetcher interface {
	FetchLatestVersion(ctx context.Context) (version.Version, error)
}

// TriggerOnChange emits a new version only when the current state differs
// from the previous one. Use it when the state has no meaningful history,
// only a "now". If the latest and previous versions are equal no new version
// is emitted, even if changes technically occurred between checks.
type TriggerOnChange struct {
	Fetcher LatestFetcher
}

// Check compares the latest state against the previous version.
func (t TriggerOnChange) Check(ctx context.Context, prev version.Version) ([]version.Version, error) {
	latest, err := t.Fetcher.FetchLatestVersion(ctx)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return []version.Version{latest}, nil
	}
	same, err := version.Equal(prev, latest)
	if err != nil {
		return nil, err
	}
	if same {
		return []version.Version{prev}, nil
	}
	return []version.Version{prev, latest}, nil
}

package resource

import (
	"context"

	"github.com/relicta-tech/resourcekit/pkg/metadata"
	"github.com/relicta-tech/resourcekit/pkg/payload"
	"github.com/relicta-tech/resourcekit/pkg/version"
)

// OutOnly makes check and in no-ops for resources that only run publish
// code. Embed it and implement ParseVersion and Out. An out-only resource
// can never trigger builds or be used in a get step.
type OutOnly struct{}

// Check never discovers anything.
func (OutOnly) Check(ctx context.Context, prev version.Version) ([]version.Version, error) {
	return nil, nil
}

// In echoes the requested version without touching the destination. The
// implicit get step after a put still needs a well-formed response.
func (OutOnly) In(ctx context.Context, ver version.Version, destDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error) {
	return ver, payload.Metadata{}, nil
}

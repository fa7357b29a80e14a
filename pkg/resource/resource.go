// Package resource defines the developer-facing contract for implementing a
// resource type, and the lifecycle runner that drives it against the
// orchestrator's stdin/argv/stdout protocol.
//
// A resource author implements the three lifecycle operations (Check, In and
// Out) plus ParseVersion, and hands the runner a Factory that builds the
// resource from the pipeline's source configuration. Everything else (payload
// parsing, version deduplication, stdout isolation, build metadata, output
// formatting) is owned by this package.
package resource

import (
	"context"
	"fmt"

	"github.com/relicta-tech/resourcekit/pkg/metadata"
	"github.com/relicta-tech/resourcekit/pkg/payload"
	"github.com/relicta-tech/resourcekit/pkg/version"
)

// Resource implements the three lifecycle operations of a resource type.
type Resource interface {
	// ParseVersion reconstructs this resource's version kind from its wire
	// representation.
	ParseVersion(flat version.Flat) (version.Version, error)

	// Check discovers new versions since prev, ordered oldest to newest.
	// prev is nil on the very first check.
	Check(ctx context.Context, prev version.Version) ([]version.Version, error)

	// In materializes the given version's artifacts into destDir, which is
	// guaranteed to exist and be writable before the call. The returned
	// version is usually the one requested, but may be amended with data
	// only knowable after the download.
	In(ctx context.Context, ver version.Version, destDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error)

	// Out publishes a new version. sourcesDir holds the build's full set of
	// sources, not just this resource's files.
	Out(ctx context.Context, sourcesDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error)
}

// Factory constructs a resource from the pipeline's source configuration.
// Use payload.DecodeSource to map the untyped configuration onto a typed
// config struct.
type Factory func(source payload.Source) (Resource, error)

// NotSupportedError signals that a resource variant deliberately does not
// implement an operation. It fails loudly so misuse is caught at call time
// rather than silently no-opped.
type NotSupportedError struct {
	Op string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by this resource", e.Op)
}

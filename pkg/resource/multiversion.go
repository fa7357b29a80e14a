package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/relicta-tech/resourcekit/internal/fileutil"
	"github.com/relicta-tech/resourcekit/pkg/metadata"
	"github.com/relicta-tech/resourcekit/pkg/payload"
	"github.com/relicta-tech/resourcekit/pkg/version"
)

// SubVersionsFetcher enumerates the current set of trackable items, each as
// a sortable sub-version.
type SubVersionsFetcher interface {
	FetchLatestSubVersions(ctx context.Context) ([]version.Ordered, error)
}

// MultiVersionResource tracks a set of items (branches, open pull requests)
// and emits a new version whenever the set's membership changes. The set is
// collapsed into one canonical multi-version, so re-observing the same set
// never triggers, regardless of discovery order.
//
// In writes a JSON document of the flattened sub-versions into the
// destination directory for use later in the pipeline. Publishing is not
// permitted.
type MultiVersionResource struct {
	// Key is the single flat key the sub-version list serializes under, and
	// the default name of the JSON document written by In.
	Key string
	// Fetcher supplies the current sub-version set.
	Fetcher SubVersionsFetcher
	// ParseSub reconstructs one sub-version from its flat form.
	ParseSub func(version.Flat) (version.Ordered, error)
}

// multiInParams are the step parameters accepted by In.
type multiInParams struct {
	FileName string `json:"file_name"`
	Indent   int    `json:"indent"`
}

// ParseVersion decodes the aggregated multi-version.
func (m MultiVersionResource) ParseVersion(flat version.Flat) (version.Version, error) {
	return version.Decompose(flat, m.Key, m.ParseSub)
}

// Check triggers on any change to the sub-version set.
func (m MultiVersionResource) Check(ctx context.Context, prev version.Version) ([]version.Version, error) {
	return TriggerOnChange{Fetcher: latestMulti{m}}.Check(ctx, prev)
}

// latestMulti adapts the sub-version fetch into a single latest version.
type latestMulti struct {
	m MultiVersionResource
}

func (l latestMulti) FetchLatestVersion(ctx context.Context) (version.Version, error) {
	subs, err := l.m.Fetcher.FetchLatestSubVersions(ctx)
	if err != nil {
		return nil, err
	}
	return version.Combine(l.m.Key, subs)
}

// In writes the sub-version data as a JSON document into destDir. The file
// name defaults to the resource key; params may override it and request
// indented output.
func (m MultiVersionResource) In(ctx context.Context, ver version.Version, destDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error) {
	multi, ok := ver.(*version.MultiVersion)
	if !ok {
		return nil, nil, fmt.Errorf("expected a multi-version, got %T", ver)
	}

	var opts multiInParams
	if err := payload.DecodeParams(params, &opts); err != nil {
		return nil, nil, err
	}
	name := opts.FileName
	if name == "" {
		name = m.Key
	}

	data, err := multi.SubversionData()
	if err != nil {
		return nil, nil, err
	}
	var doc []byte
	if opts.Indent > 0 {
		doc, err = json.MarshalIndent(data, "", strings.Repeat(" ", opts.Indent))
	} else {
		doc, err = json.Marshal(data)
	}
	if err != nil {
		return nil, nil, err
	}

	path := filepath.Join(destDir, name+".json")
	if err := fileutil.AtomicWriteFile(path, doc, 0o644); err != nil {
		return nil, nil, err
	}
	return ver, payload.Metadata{}, nil
}

// Out is deliberately unsupported: the tracked set only changes upstream.
func (m MultiVersionResource) Out(ctx context.Context, sourcesDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error) {
	return nil, nil, &NotSupportedError{Op: "out"}
}

// maxDocumentSize bounds sub-version documents read back from a build volume.
const maxDocumentSize = 4 << 20

// ReadSubVersionDocument reads a document written by In and reconstructs the
// sub-versions, oldest first. Tasks later in the pipeline use this to act on
// the tracked set (one set_pipeline per branch, say) without re-fetching it.
func ReadSubVersionDocument(path string, parse func(version.Flat) (version.Ordered, error)) ([]version.Ordered, error) {
	raw, err := fileutil.ReadFileLimited(path, maxDocumentSize)
	if err != nil {
		return nil, err
	}
	var flats []version.Flat
	if err := json.Unmarshal(raw, &flats); err != nil {
		return nil, fmt.Errorf("parse sub-version document %s: %w", path, err)
	}
	subs := make([]version.Ordered, 0, len(flats))
	for _, flat := range flats {
		sub, err := parse(flat)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

package resource

import (
	"context"

	"github.com/relicta-tech/resourcekit/pkg/metadata"
	"github.com/relicta-tech/resourcekit/pkg/payload"
	"github.com/relicta-tech/resourcekit/pkg/version"
)

// DataDownloader is the simplified contract behind an InOnly resource:
// fetch something and place it in the destination directory. It is
// deliberately not passed a version.
type DataDownloader interface {
	DownloadData(ctx context.Context, destDir string, build *metadata.Build, params payload.Params) (payload.Metadata, error)
}

// InOnly adapts a DataDownloader into a full resource that acts like an
// external function: the put step runs it, and the implicit get step fetches
// the result. Versions carry no meaning here, so each put mints a fresh
// time-stamped version to keep versions unique and non-empty.
type InOnly struct {
	Downloader DataDownloader
}

// NewInOnly wraps a downloader into a resource.
func NewInOnly(d DataDownloader) InOnly {
	return InOnly{Downloader: d}
}

// ParseVersion parses the time-stamped placeholder version.
func (InOnly) ParseVersion(flat version.Flat) (version.Version, error) {
	return version.ParseTimeVersion(flat)
}

// Check never discovers anything; this resource cannot trigger builds.
func (InOnly) Check(ctx context.Context, prev version.Version) ([]version.Version, error) {
	return nil, nil
}

// In delegates to the downloader and echoes the version unchanged.
func (i InOnly) In(ctx context.Context, ver version.Version, destDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error) {
	meta, err := i.Downloader.DownloadData(ctx, destDir, build, params)
	if err != nil {
		return nil, nil, err
	}
	return ver, meta, nil
}

// Out mints the version the implicit get step will fetch.
func (InOnly) Out(ctx context.Context, sourcesDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error) {
	return version.Now(), payload.Metadata{}, nil
}

package resource

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/resourcekit/internal/fileutil"
	"github.com/relicta-tech/resourcekit/internal/stdio"
	"github.com/relicta-tech/resourcekit/pkg/metadata"
	"github.com/relicta-tech/resourcekit/pkg/payload"
	"github.com/relicta-tech/resourcekit/pkg/version"
)

// Runner drives one lifecycle invocation against a resource. Each invocation
// is a fresh process with fresh parsed input; the runner holds no state
// across calls.
type Runner struct {
	factory Factory

	stdin  io.Reader
	stdout io.Writer
	diag   io.Writer
	logger *log.Logger
	build  *metadata.Build

	// silence guards the process stdout around developer code. Swappable so
	// tests need not touch the real os.Stdout.
	silence func() func()
}

// Option configures a Runner.
type Option func(*Runner)

// WithStdin overrides the request payload stream.
func WithStdin(r io.Reader) Option { return func(run *Runner) { run.stdin = r } }

// WithStdout overrides the result channel.
func WithStdout(w io.Writer) Option { return func(run *Runner) { run.stdout = w } }

// WithDiagnostics overrides the diagnostic stream.
func WithDiagnostics(w io.Writer) Option { return func(run *Runner) { run.diag = w } }

// WithLogger overrides the runner's logger.
func WithLogger(logger *log.Logger) Option { return func(run *Runner) { run.logger = logger } }

// WithBuildMetadata overrides the build metadata instead of reading the
// environment. Intended for test harnesses.
func WithBuildMetadata(build *metadata.Build) Option {
	return func(run *Runner) { run.build = build }
}

// NewRunner builds a runner for the given resource factory.
func NewRunner(factory Factory, opts ...Option) *Runner {
	run := &Runner{
		factory: factory,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		diag:    os.Stderr,
	}
	for _, opt := range opts {
		opt(run)
	}
	if run.logger == nil {
		run.logger = log.NewWithOptions(run.diag, log.Options{
			ReportTimestamp: false,
		})
	}
	if run.silence == nil {
		run.silence = func() func() {
			guard := stdio.Silence()
			return guard.Restore
		}
	}
	return run
}

// RunCheck executes the check operation: parse the request, delegate to the
// resource, deduplicate, and emit the ordered version list.
func (r *Runner) RunCheck(ctx context.Context) error {
	raw, err := io.ReadAll(r.stdin)
	if err != nil {
		return fmt.Errorf("read check payload: %w", err)
	}
	source, prevFlat, err := payload.ParseCheck(raw)
	if err != nil {
		return err
	}

	res, err := r.factory(source)
	if err != nil {
		return err
	}

	var prev version.Version
	if prevFlat != nil {
		prev, err = res.ParseVersion(prevFlat)
		if err != nil {
			return err
		}
		r.logger.Debug("checking from previous version")
	} else {
		r.logger.Debug("first check, no previous version")
	}

	versions, err := r.guarded2(func() ([]version.Version, error) {
		return res.Check(ctx, prev)
	})
	if err != nil {
		return err
	}

	// The orchestrator treats duplicate versions as distinct triggers, so
	// the output must never contain them.
	versions, err = version.Dedupe(versions)
	if err != nil {
		return err
	}

	flats := make([]version.Flat, 0, len(versions))
	for _, v := range versions {
		flat, err := v.Flatten()
		if err != nil {
			return err
		}
		flats = append(flats, flat)
	}
	r.logger.Debug("check complete", "versions", len(flats))

	out, err := payload.FormatCheck(flats)
	if err != nil {
		return err
	}
	return r.emit(out)
}

// RunIn executes the in operation against destDir.
func (r *Runner) RunIn(ctx context.Context, destDir string) error {
	if destDir == "" {
		return &payload.Error{Op: "parse in arguments", Msg: "destination directory must be passed on the command line"}
	}
	raw, err := io.ReadAll(r.stdin)
	if err != nil {
		return fmt.Errorf("read in payload: %w", err)
	}
	source, flat, params, err := payload.ParseIn(raw)
	if err != nil {
		return err
	}

	res, err := r.factory(source)
	if err != nil {
		return err
	}
	ver, err := res.ParseVersion(flat)
	if err != nil {
		return err
	}
	build, err := r.buildMetadata()
	if err != nil {
		return err
	}

	// The contract promises a writable destination before resource code runs.
	if err := fileutil.EnsureDir(destDir); err != nil {
		return err
	}
	if err := fileutil.CheckWritable(destDir); err != nil {
		return err
	}

	r.logger.Debug("downloading version", "dest", destDir)
	got, meta, err := r.guarded3(func() (version.Version, payload.Metadata, error) {
		return res.In(ctx, ver, destDir, build, params)
	})
	if err != nil {
		return err
	}
	return r.emitInOut(got, meta)
}

// RunOut executes the out operation against sourcesDir.
func (r *Runner) RunOut(ctx context.Context, sourcesDir string) error {
	if sourcesDir == "" {
		return &payload.Error{Op: "parse out arguments", Msg: "sources directory must be passed on the command line"}
	}
	raw, err := io.ReadAll(r.stdin)
	if err != nil {
		return fmt.Errorf("read out payload: %w", err)
	}
	source, params, err := payload.ParseOut(raw)
	if err != nil {
		return err
	}

	res, err := r.factory(source)
	if err != nil {
		return err
	}
	build, err := r.buildMetadata()
	if err != nil {
		return err
	}

	r.logger.Debug("publishing new version", "sources", sourcesDir)
	ver, meta, err := r.guarded3(func() (version.Version, payload.Metadata, error) {
		return res.Out(ctx, sourcesDir, build, params)
	})
	if err != nil {
		return err
	}
	return r.emitInOut(ver, meta)
}

func (r *Runner) buildMetadata() (*metadata.Build, error) {
	if r.build != nil {
		return r.build, nil
	}
	return metadata.FromEnv()
}

// guarded2 runs developer code with stdout pointed at the diagnostic stream,
// restoring it on every exit path.
func (r *Runner) guarded2(fn func() ([]version.Version, error)) ([]version.Version, error) {
	restore := r.silence()
	defer restore()
	return fn()
}

func (r *Runner) guarded3(fn func() (version.Version, payload.Metadata, error)) (version.Version, payload.Metadata, error) {
	restore := r.silence()
	defer restore()
	return fn()
}

func (r *Runner) emitInOut(ver version.Version, meta payload.Metadata) error {
	flat, err := ver.Flatten()
	if err != nil {
		return err
	}
	if meta == nil {
		meta = payload.Metadata{}
	}
	out, err := payload.FormatInOut(flat, meta)
	if err != nil {
		return err
	}
	return r.emit(out)
}

func (r *Runner) emit(out []byte) error {
	if _, err := fmt.Fprintln(r.stdout, string(out)); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

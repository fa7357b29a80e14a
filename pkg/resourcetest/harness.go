// Package resourcetest exercises resource types without a real orchestrator.
//
// The harness fabricates the wire payloads the orchestrator would send, runs
// the lifecycle through the same runner production uses, and parses the
// result channel back into typed values. Destination and sources directories
// are the caller's to provide (t.TempDir works well).
package resourcetest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/relicta-tech/resourcekit/pkg/metadata"
	"github.com/relicta-tech/resourcekit/pkg/payload"
	"github.com/relicta-tech/resourcekit/pkg/resource"
	"github.com/relicta-tech/resourcekit/pkg/version"
)

// StepResult is the parsed outcome of an in or out invocation.
type StepResult struct {
	Version     version.Flat
	Metadata    payload.Metadata
	Diagnostics string
}

// FakeBuild fabricates plausible build metadata with a unique build ID.
func FakeBuild() *metadata.Build {
	return &metadata.Build{
		BuildID:      uuid.NewString(),
		TeamName:     "main",
		ExternalURL:  "https://ci.example.com",
		BuildName:    "42",
		JobName:      "test-job",
		PipelineName: "test-pipeline",
	}
}

// FakeOneOffBuild fabricates build metadata for a one-off build.
func FakeOneOffBuild() *metadata.Build {
	return &metadata.Build{
		BuildID:     uuid.NewString(),
		TeamName:    "main",
		ExternalURL: "https://ci.example.com",
		BuildName:   "42",
	}
}

// Check runs a check invocation and returns the emitted flat versions in
// order, plus anything written to the diagnostic stream.
func Check(ctx context.Context, factory resource.Factory, source payload.Source, prev version.Flat) ([]version.Flat, string, error) {
	input, err := payload.FormatCheckInput(source, prev)
	if err != nil {
		return nil, "", err
	}

	stdout, diag, runner := newRunner(factory, input, nil)
	if err := runner.RunCheck(ctx); err != nil {
		return nil, diag.String(), err
	}

	var flats []version.Flat
	if err := json.Unmarshal(stdout.Bytes(), &flats); err != nil {
		return nil, diag.String(), fmt.Errorf("check emitted malformed output: %w", err)
	}
	return flats, diag.String(), nil
}

// In runs an in invocation against destDir.
func In(ctx context.Context, factory resource.Factory, source payload.Source, flat version.Flat, params payload.Params, destDir string) (*StepResult, error) {
	input, err := payload.FormatInInput(source, flat, params)
	if err != nil {
		return nil, err
	}

	stdout, diag, runner := newRunner(factory, input, FakeBuild())
	if err := runner.RunIn(ctx, destDir); err != nil {
		return &StepResult{Diagnostics: diag.String()}, err
	}
	return parseStepResult(stdout.Bytes(), diag.String())
}

// Out runs an out invocation against sourcesDir.
func Out(ctx context.Context, factory resource.Factory, source payload.Source, params payload.Params, sourcesDir string) (*StepResult, error) {
	input, err := payload.FormatOutInput(source, params)
	if err != nil {
		return nil, err
	}

	stdout, diag, runner := newRunner(factory, input, FakeBuild())
	if err := runner.RunOut(ctx, sourcesDir); err != nil {
		return &StepResult{Diagnostics: diag.String()}, err
	}
	return parseStepResult(stdout.Bytes(), diag.String())
}

func newRunner(factory resource.Factory, input []byte, build *metadata.Build) (*bytes.Buffer, *bytes.Buffer, *resource.Runner) {
	stdout := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	opts := []resource.Option{
		resource.WithStdin(bytes.NewReader(input)),
		resource.WithStdout(stdout),
		resource.WithDiagnostics(diag),
		resource.WithLogger(log.NewWithOptions(diag, log.Options{ReportTimestamp: false})),
	}
	if build != nil {
		opts = append(opts, resource.WithBuildMetadata(build))
	}
	return stdout, diag, resource.NewRunner(factory, opts...)
}

func parseStepResult(raw []byte, diagnostics string) (*StepResult, error) {
	var wire struct {
		Version  version.Flat `json:"version"`
		Metadata []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("step emitted malformed output: %w", err)
	}
	meta := make(payload.Metadata, 0, len(wire.Metadata))
	for _, pair := range wire.Metadata {
		meta = append(meta, payload.Pair(pair.Name, pair.Value))
	}
	return &StepResult{Version: wire.Version, Metadata: meta, Diagnostics: diagnostics}, nil
}

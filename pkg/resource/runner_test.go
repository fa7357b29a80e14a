package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relicta-tech/resourcekit/pkg/metadata"
	"github.com/relicta-tech/resourcekit/pkg/payload"
	"github.com/relicta-tech/resourcekit/pkg/version"
)

// fakeResource is a scriptable resource over rev versions.
type fakeResource struct {
	checkVersions []version.Version
	checkErr      error
	onCheck       func()
	onIn          func(destDir string)
	inMeta        payload.Metadata
}

func (f *fakeResource) ParseVersion(flat version.Flat) (version.Version, error) {
	return parseRev(flat)
}

func (f *fakeResource) Check(ctx context.Context, prev version.Version) ([]version.Version, error) {
	if f.onCheck != nil {
		f.onCheck()
	}
	return f.checkVersions, f.checkErr
}

func (f *fakeResource) In(ctx context.Context, ver version.Version, destDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error) {
	if f.onIn != nil {
		f.onIn(destDir)
	}
	return ver, f.inMeta, nil
}

func (f *fakeResource) Out(ctx context.Context, sourcesDir string, build *metadata.Build, params payload.Params) (version.Version, payload.Metadata, error) {
	return rev{9}, f.inMeta, nil
}

func fixedFactory(res Resource, err error) Factory {
	return func(source payload.Source) (Resource, error) {
		return res, err
	}
}

func testBuild() *metadata.Build {
	return &metadata.Build{
		BuildID:     "1",
		TeamName:    "main",
		ExternalURL: "https://ci.example.com",
	}
}

func runnerFor(t *testing.T, factory Factory, input string, extra ...Option) (*Runner, *bytes.Buffer) {
	t.Helper()
	var stdout bytes.Buffer
	opts := append([]Option{
		WithStdin(strings.NewReader(input)),
		WithStdout(&stdout),
		WithDiagnostics(&bytes.Buffer{}),
		WithBuildMetadata(testBuild()),
	}, extra...)
	return NewRunner(factory, opts...), &stdout
}

func TestRunCheck(t *testing.T) {
	res := &fakeResource{checkVersions: []version.Version{rev{2}, rev{3}}}
	run, stdout := runnerFor(t, fixedFactory(res, nil), `{"source": {}, "version": {"rev": "2"}}`)

	if err := run.RunCheck(context.Background()); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}

	var flats []version.Flat
	if err := json.Unmarshal(stdout.Bytes(), &flats); err != nil {
		t.Fatalf("stdout is not a JSON version list: %v\n%s", err, stdout.String())
	}
	if len(flats) != 2 || flats[0]["rev"] != "2" || flats[1]["rev"] != "3" {
		t.Errorf("versions = %v", flats)
	}
}

func TestRunCheck_FirstCheckEmitsEmptyList(t *testing.T) {
	res := &fakeResource{}
	run, stdout := runnerFor(t, fixedFactory(res, nil), `{"source": {}}`)

	if err := run.RunCheck(context.Background()); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "[]" {
		t.Errorf("stdout = %q, want []", got)
	}
}

func TestRunCheck_DeduplicatesResourceOutput(t *testing.T) {
	res := &fakeResource{checkVersions: []version.Version{rev{1}, rev{2}, rev{1}}}
	run, stdout := runnerFor(t, fixedFactory(res, nil), `{"source": {}}`)

	if err := run.RunCheck(context.Background()); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}

	var flats []version.Flat
	if err := json.Unmarshal(stdout.Bytes(), &flats); err != nil {
		t.Fatalf("unmarshal stdout: %v", err)
	}
	if len(flats) != 2 {
		t.Errorf("versions = %v, want duplicates removed", flats)
	}
}

func TestRunCheck_MalformedPayloadSkipsFactory(t *testing.T) {
	called := false
	factory := func(source payload.Source) (Resource, error) {
		called = true
		return &fakeResource{}, nil
	}
	run, _ := runnerFor(t, factory, `{"source": "nope"}`)

	err := run.RunCheck(context.Background())
	var payloadErr *payload.Error
	if !errors.As(err, &payloadErr) {
		t.Fatalf("RunCheck error = %v, want *payload.Error", err)
	}
	if called {
		t.Error("factory ran despite a malformed payload")
	}
}

func TestRunCheck_ResourceErrorPropagates(t *testing.T) {
	wantErr := errors.New("remote is down")
	res := &fakeResource{checkErr: wantErr}
	run, stdout := runnerFor(t, fixedFactory(res, nil), `{"source": {}}`)

	err := run.RunCheck(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("RunCheck error = %v, want %v", err, wantErr)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing on failure", stdout.String())
	}
}

func TestRunIn(t *testing.T) {
	destDir := filepath.Join(t.TempDir(), "resource")
	res := &fakeResource{
		inMeta: payload.Metadata{payload.Pair("commit", "61cbef")},
		onIn: func(dir string) {
			if err := os.WriteFile(filepath.Join(dir, "ref"), []byte("2"), 0o644); err != nil {
				t.Errorf("resource could not write into destDir: %v", err)
			}
		},
	}
	run, stdout := runnerFor(t, fixedFactory(res, nil), `{"source": {}, "version": {"rev": "2"}}`)

	if err := run.RunIn(context.Background(), destDir); err != nil {
		t.Fatalf("RunIn error: %v", err)
	}

	// The runner must create the directory before resource code runs.
	if _, err := os.Stat(filepath.Join(destDir, "ref")); err != nil {
		t.Errorf("downloaded file missing: %v", err)
	}

	var result struct {
		Version  version.Flat `json:"version"`
		Metadata []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal stdout: %v\n%s", err, stdout.String())
	}
	if result.Version["rev"] != "2" {
		t.Errorf("version = %v", result.Version)
	}
	if len(result.Metadata) != 1 || result.Metadata[0].Name != "commit" {
		t.Errorf("metadata = %v", result.Metadata)
	}
}

func TestRunIn_MissingDestDirArgument(t *testing.T) {
	run, _ := runnerFor(t, fixedFactory(&fakeResource{}, nil), `{"source": {}, "version": {"rev": "1"}}`)

	err := run.RunIn(context.Background(), "")
	var payloadErr *payload.Error
	if !errors.As(err, &payloadErr) {
		t.Fatalf("RunIn error = %v, want *payload.Error", err)
	}
}

func TestRunIn_MissingVersion(t *testing.T) {
	run, _ := runnerFor(t, fixedFactory(&fakeResource{}, nil), `{"source": {}}`)

	err := run.RunIn(context.Background(), t.TempDir())
	var payloadErr *payload.Error
	if !errors.As(err, &payloadErr) {
		t.Fatalf("RunIn error = %v, want *payload.Error", err)
	}
}

func TestRunOut(t *testing.T) {
	res := &fakeResource{inMeta: payload.Metadata{payload.Pair("published", true)}}
	run, stdout := runnerFor(t, fixedFactory(res, nil), `{"source": {}, "params": {}}`)

	if err := run.RunOut(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("RunOut error: %v", err)
	}

	want := `{"version":{"rev":"9"},"metadata":[{"name":"published","value":"true"}]}`
	if got := strings.TrimSpace(stdout.String()); got != want {
		t.Errorf("stdout = %s, want %s", got, want)
	}
}

func TestRunner_GuardsStdoutAroundResourceCode(t *testing.T) {
	silenced := false
	observed := false
	res := &fakeResource{
		checkVersions: []version.Version{rev{1}},
	}
	res.onCheck = func() { observed = silenced }

	run, stdout := runnerFor(t, fixedFactory(res, nil), `{"source": {}}`)
	run.silence = func() func() {
		silenced = true
		return func() { silenced = false }
	}

	if err := run.RunCheck(context.Background()); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}
	if !observed {
		t.Error("resource code ran without the stdout guard")
	}
	if silenced {
		t.Error("stdout guard was not restored after resource code returned")
	}
	if stdout.Len() == 0 {
		t.Error("result was not emitted after the guard was restored")
	}
}

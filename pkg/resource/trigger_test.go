package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/relicta-tech/resourcekit/pkg/version"
)

type fakeLatestFetcher struct {
	latest version.Version
	err    error
}

func (f fakeLatestFetcher) FetchLatestVersion(ctx context.Context) (version.Version, error) {
	return f.latest, f.err
}

func TestTriggerOnChangeCheck(t *testing.T) {
	tests := []struct {
		name   string
		latest version.Version
		prev   version.Version
		want   []int
	}{
		{
			name:   "first check emits the latest",
			latest: rev{7},
			prev:   nil,
			want:   []int{7},
		},
		{
			name:   "unchanged state re-emits only the previous",
			latest: rev{7},
			prev:   rev{7},
			want:   []int{7},
		},
		{
			name:   "changed state emits previous then latest",
			latest: rev{8},
			prev:   rev{7},
			want:   []int{7, 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := TriggerOnChange{Fetcher: fakeLatestFetcher{latest: tt.latest}}

			got, err := tr.Check(context.Background(), tt.prev)
			if err != nil {
				t.Fatalf("Check error: %v", err)
			}
			if !equalInts(revs(got), tt.want) {
				t.Errorf("Check = %v, want %v", revs(got), tt.want)
			}
		})
	}
}

func TestTriggerOnChangeCheck_FetchError(t *testing.T) {
	wantErr := errors.New("upstream unreachable")
	tr := TriggerOnChange{Fetcher: fakeLatestFetcher{err: wantErr}}

	_, err := tr.Check(context.Background(), rev{1})
	if !errors.Is(err, wantErr) {
		t.Errorf("Check error = %v, want %v", err, wantErr)
	}
}

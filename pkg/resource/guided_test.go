package resource

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/relicta-tech/resourcekit/pkg/version"
)

// rev is a minimal ordered version for exercising check policies.
type rev struct {
	n int
}

func (r rev) Flatten() (version.Flat, error) {
	return version.Flat{"rev": strconv.Itoa(r.n)}, nil
}

func (r rev) Before(other version.Version) bool {
	o, ok := other.(rev)
	if !ok {
		return false
	}
	return r.n < o.n
}

func parseRev(flat version.Flat) (version.Version, error) {
	n, err := strconv.Atoi(flat["rev"])
	if err != nil {
		return nil, err
	}
	return rev{n: n}, nil
}

type fakeAllFetcher struct {
	all []version.Ordered
	err error
}

func (f fakeAllFetcher) FetchAllVersions(ctx context.Context) ([]version.Ordered, error) {
	return f.all, f.err
}

func revs(out []version.Version) []int {
	ns := make([]int, len(out))
	for i, v := range out {
		ns[i] = v.(rev).n
	}
	return ns
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGuidedCheck(t *testing.T) {
	tests := []struct {
		name string
		all  []version.Ordered
		prev version.Version
		want []int
	}{
		{
			name: "first check with nothing upstream",
			all:  nil,
			prev: nil,
			want: []int{},
		},
		{
			name: "first check emits everything oldest first",
			all:  []version.Ordered{rev{4}, rev{1}, rev{3}, rev{2}},
			prev: nil,
			want: []int{1, 2, 3, 4},
		},
		{
			name: "previous still present emits it and everything after",
			all:  []version.Ordered{rev{1}, rev{2}, rev{3}, rev{4}},
			prev: rev{2},
			want: []int{2, 3, 4},
		},
		{
			name: "previous is the newest",
			all:  []version.Ordered{rev{1}, rev{2}, rev{3}},
			prev: rev{3},
			want: []int{3},
		},
		{
			name: "previous vanished resynchronizes to the newest",
			all:  []version.Ordered{rev{3}, rev{4}, rev{5}},
			prev: rev{2},
			want: []int{5},
		},
		{
			name: "previous vanished and nothing remains",
			all:  nil,
			prev: rev{2},
			want: []int{},
		},
		{
			name: "duplicate discoveries collapse",
			all:  []version.Ordered{rev{1}, rev{2}, rev{2}, rev{3}, rev{1}},
			prev: rev{1},
			want: []int{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Guided{Fetcher: fakeAllFetcher{all: tt.all}}

			got, err := g.Check(context.Background(), tt.prev)
			if err != nil {
				t.Fatalf("Check error: %v", err)
			}
			if !equalInts(revs(got), tt.want) {
				t.Errorf("Check = %v, want %v", revs(got), tt.want)
			}
		})
	}
}

func TestGuidedCheck_FetchError(t *testing.T) {
	wantErr := errors.New("upstream unreachable")
	g := Guided{Fetcher: fakeAllFetcher{err: wantErr}}

	_, err := g.Check(context.Background(), nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("Check error = %v, want %v", err, wantErr)
	}
}

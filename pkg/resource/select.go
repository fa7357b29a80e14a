package resource

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"

	"github.com/relicta-tech/resourcekit/pkg/payload"
)

// Select returns a factory that delegates to one of several resource
// factories based on a flag in the source configuration. The flag is removed
// from the configuration before the chosen factory sees it.
//
// This lets one deployed resource type image serve several related resource
// flavors, selected per pipeline:
//
//	source:
//	  resource: branches
//	  uri: https://example.com/repo.git
func Select(factories map[string]Factory, paramKey string) Factory {
	return func(source payload.Source) (Resource, error) {
		raw, ok := source[paramKey]
		if !ok {
			return nil, &payload.Error{Op: "select resource", Msg: fmt.Sprintf("missing flag %q in source configuration", paramKey)}
		}
		key := cast.ToString(raw)

		factory, ok := factories[key]
		if !ok {
			known := make([]string, 0, len(factories))
			for name := range factories {
				known = append(known, name)
			}
			sort.Strings(known)
			return nil, &payload.Error{Op: "select resource", Msg: fmt.Sprintf("no resource matching %q; possible options: %v", key, known)}
		}

		trimmed := make(payload.Source, len(source)-1)
		for name, value := range source {
			if name == paramKey {
				continue
			}
			trimmed[name] = value
		}
		return factory(trimmed)
	}
}

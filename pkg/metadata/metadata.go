// Package metadata exposes the orchestrator-supplied build environment as
// read-only attributes.
//
// Build metadata is passed to in and out operations only. The orchestrator
// deliberately withholds it from check to discourage versions that depend on
// the build they were discovered in.
package metadata

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
)

// Build describes the orchestrator's environment for the current build.
// The optional attributes are empty for one-off builds triggered outside a
// pipeline.
type Build struct {
	BuildID              string
	TeamName             string
	ExternalURL          string
	BuildName            string
	JobName              string
	PipelineName         string
	PipelineInstanceVars string
}

// FromEnv populates a Build from the fixed environment variable set. The
// three identifiers every build carries are required; everything else is
// optional.
func FromEnv() (*Build, error) {
	b := &Build{
		BuildID:              os.Getenv("BUILD_ID"),
		TeamName:             os.Getenv("BUILD_TEAM_NAME"),
		ExternalURL:          os.Getenv("ATC_EXTERNAL_URL"),
		BuildName:            os.Getenv("BUILD_NAME"),
		JobName:              os.Getenv("BUILD_JOB_NAME"),
		PipelineName:         os.Getenv("BUILD_PIPELINE_NAME"),
		PipelineInstanceVars: os.Getenv("BUILD_PIPELINE_INSTANCE_VARS"),
	}
	for name, value := range map[string]string{
		"BUILD_ID":         b.BuildID,
		"BUILD_TEAM_NAME":  b.TeamName,
		"ATC_EXTERNAL_URL": b.ExternalURL,
	} {
		if value == "" {
			return nil, fmt.Errorf("required build environment variable %s is not set", name)
		}
	}
	return b, nil
}

// OneOff reports whether this build was triggered outside any pipeline, such
// as via the CLI execute command. Determined by the absence of the job,
// pipeline and instance-var attributes.
func (b *Build) OneOff() bool {
	return b.JobName == "" && b.PipelineName == "" && b.PipelineInstanceVars == ""
}

// Instanced reports whether the build's pipeline is an instanced pipeline.
func (b *Build) Instanced() bool {
	return b.PipelineInstanceVars != ""
}

// InstanceVars decodes the pipeline instance vars. A non-instanced pipeline
// yields an empty map.
func (b *Build) InstanceVars() (map[string]any, error) {
	if b.PipelineInstanceVars == "" {
		return map[string]any{}, nil
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(b.PipelineInstanceVars), &vars); err != nil {
		return nil, fmt.Errorf("decode pipeline instance vars: %w", err)
	}
	return vars, nil
}

// CreatedBy returns the username that created the build. The orchestrator
// withholds this unless the resource schema opts in, so absence is an error
// rather than an empty string.
func (b *Build) CreatedBy() (string, error) {
	createdBy, ok := os.LookupEnv("BUILD_CREATED_BY")
	if !ok {
		return "", fmt.Errorf("BUILD_CREATED_BY has not been made available; it must be enabled on the resource schema")
	}
	return createdBy, nil
}

// BuildURL computes the web UI link for this build, accounting for one-off
// builds and instanced pipelines. It is the most robust way to link back to
// the build.
func (b *Build) BuildURL() (string, error) {
	var buildPath string
	if b.OneOff() {
		buildPath = fmt.Sprintf("builds/%s", b.BuildID)
	} else {
		buildPath = fmt.Sprintf("teams/%s/pipelines/%s/jobs/%s/builds/%s",
			b.TeamName, b.PipelineName, b.JobName, b.BuildName)
	}

	query := ""
	if b.Instanced() {
		vars, err := b.InstanceVars()
		if err != nil {
			return "", err
		}
		flattened := flattenVars("", vars)
		keys := make([]string, 0, len(flattened))
		for key := range flattened {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			encoded, err := json.Marshal(flattened[key])
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("vars.%s=%s", key, url.QueryEscape(string(encoded))))
		}
		query = "?" + strings.Join(parts, "&")
	}

	escaped := (&url.URL{Path: buildPath}).EscapedPath()
	return fmt.Sprintf("%s/%s%s", strings.TrimRight(b.ExternalURL, "/"), escaped, query), nil
}

// flattenVars collapses nested instance vars into dotted keys, the form the
// web UI expects in its query string.
func flattenVars(prefix string, vars map[string]any) map[string]any {
	flattened := make(map[string]any, len(vars))
	for key, value := range vars {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for nestedKey, nestedValue := range flattenVars(full, nested) {
				flattened[nestedKey] = nestedValue
			}
			continue
		}
		flattened[full] = value
	}
	return flattened
}

// Expand substitutes $NAME-style placeholders in s using only the fixed
// attribute set (plus $BUILD_URL, and $BUILD_CREATED_BY when exposed), never
// the raw process environment. Optional attributes missing from the build
// expand to empty strings. Unknown names are an error unless ignoreMissing is
// set, in which case they are left in place.
func (b *Build) Expand(s string, extra map[string]string, ignoreMissing bool) (string, error) {
	buildURL, err := b.BuildURL()
	if err != nil {
		return "", err
	}
	values := map[string]string{
		"BUILD_ID":                     b.BuildID,
		"BUILD_TEAM_NAME":              b.TeamName,
		"BUILD_NAME":                   b.BuildName,
		"BUILD_JOB_NAME":               b.JobName,
		"BUILD_PIPELINE_NAME":          b.PipelineName,
		"BUILD_PIPELINE_INSTANCE_VARS": b.PipelineInstanceVars,
		"ATC_EXTERNAL_URL":             b.ExternalURL,
		"BUILD_URL":                    buildURL,
	}
	if createdBy, err := b.CreatedBy(); err == nil {
		values["BUILD_CREATED_BY"] = createdBy
	}
	for name, value := range extra {
		values[name] = value
	}

	var missing []string
	var out strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '$' || i+1 == len(s) {
			out.WriteByte(s[i])
			i++
			continue
		}

		braced := s[i+1] == '{'
		start := i + 1
		if braced {
			start++
		}
		end := start
		for end < len(s) && isNameByte(s[end]) {
			end++
		}
		if start < end && '0' <= s[start] && s[start] <= '9' {
			// Names never start with a digit; $5 is just text.
			out.WriteByte('$')
			i++
			continue
		}
		if braced && (end == len(s) || s[end] != '}') {
			// Unterminated brace; nothing to substitute.
			out.WriteString(s[i:end])
			i = end
			continue
		}
		name := s[start:end]
		placeholder := s[i:end]
		if braced {
			placeholder = s[i : end+1]
			end++
		}
		if name == "" {
			out.WriteString(placeholder)
			i = end
			continue
		}

		switch value, ok := values[name]; {
		case ok:
			out.WriteString(value)
		case ignoreMissing:
			// Leave the placeholder exactly as written, braces included.
			out.WriteString(placeholder)
		default:
			missing = append(missing, name)
		}
		i = end
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("unknown build metadata variable(s): %s", strings.Join(missing, ", "))
	}
	return out.String(), nil
}

func isNameByte(c byte) bool {
	return c == '_' ||
		'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9'
}

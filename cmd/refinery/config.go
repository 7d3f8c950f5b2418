package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// YAMLLoader reads flag defaults from a YAML document. Keys are flag
// names with dashes or underscores, either at the top level or nested
// under the command name:
//
//	db: events.db
//	run:
//	  max_iterations: 5
//	  retry_delays: [1s, 5s]
//
// Flags given on the command line take precedence.
func YAMLLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return kong.ResolverFunc(func(_ *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		if parent != nil && parent.Command != nil {
			if nested, ok := lookup(values, parent.Command.Name).(map[string]any); ok {
				if v := lookup(nested, flag.Name); v != nil {
					return format(v), nil
				}
			}
		}
		if v := lookup(values, flag.Name); v != nil {
			if _, isSection := v.(map[string]any); !isSection {
				return format(v), nil
			}
		}
		return nil, nil
	}), nil
}

func lookup(values map[string]any, name string) any {
	if v, ok := values[name]; ok {
		return v
	}
	return values[strings.ReplaceAll(name, "-", "_")]
}

// format renders a YAML value the way it would be written on the command
// line. Lists become comma-separated.
func format(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

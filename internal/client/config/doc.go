// Package config loads the pintask CLI configuration: struct defaults,
// overlaid by an optional JSON file (path via -c/-config), overlaid by
// command-line flags. Later sources take precedence.
package config

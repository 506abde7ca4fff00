// Package config loads runtime settings for the photoslot demo binary.
//
// Sources are applied in order: built-in defaults, then a JSON file
// (path given via -c/-config), then command-line flags. Later sources
// win. The JSON loader uses timex.Duration for intervals, so values can
// be either strings like "200ms" or integer nanoseconds.
package config

/*
Package config provides type-safe extraction of destination and pipeline
settings from map[string]any.

# Overview

Destination settings arrive as loosely typed maps (from YAML, JSON or
application code). Config wraps such a map and returns defaults for
missing keys and type mismatches instead of failing:

	settings := config.New(map[string]any{
	    "apiKey":          "k-123",
	    "initialPageview": false,
	    "flushAt":         20,
	})

	key := settings.String("apiKey", "")                 // "k-123"
	initial := settings.Bool("initialPageview", true)    // false
	flushAt := settings.Int("flushAt", 10)               // 20
	timeout := settings.Duration("timeout", time.Second) // 1s (missing)

# Durations

Duration accepts time.ParseDuration strings ("300ms"), time.Duration
values, and bare numbers, which are read as milliseconds to match the
call-surface timeout unit.

# File Loading

	cfg, err := config.FromFile("beacon.yaml")

YAML integers are normalised to float64 so a file behaves the same whether
it was written as YAML or JSON.

# Copying

CloneMap and CloneValue deep-copy the JSON-like shapes that flow through
the pipeline; the facade and the memory backend rely on them for their
defensive copies.
*/
package config

// Package config loads, normalizes, and validates signbridge configuration.
//
// Configuration lives in a TOML file (default ~/.config/signbridge/config.toml,
// falling back to ./signbridge.toml). Missing values take repository defaults,
// paths are expanded to absolute form, and secrets may be supplied through the
// environment instead of the file.
package config

// Package config loads and validates resolverd configuration from
// environment variables (prefix RESOLVERD) layered over an optional
// YAML file. Resolution-specific settings live in ResolverConfig.
package config

// Package config loads leakgate scanner configuration from local and global
// YAML files. The CLI merges the layers with flags (CLI > local > global) and
// maps the result into engine, registry and validator settings.
package config

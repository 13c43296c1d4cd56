// Package engine feeds files through the registered detectors. Walk turns a
// directory into a file list; Orchestrator.Scan fans the files out to a
// bounded worker pool and merges the per-detector output into one
// deduplicated, deterministically ordered finding list. External callers
// should go through pkg/core.
package engine

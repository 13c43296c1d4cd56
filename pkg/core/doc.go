// Package core is the stable facade over leakgate's pipeline for external
// integrations. It wires detection, validation, scoring, classification,
// policy evaluation and autofix planning behind one call and re-exports a
// narrow set of types so callers never import internal packages.
//
// Example:
//
//	p, err := core.NewPipeline(core.Options{Policy: core.DefaultPolicy()})
//	if err != nil { /* handle */ }
//	files, _ := core.Walk(ctx, core.WalkConfig{Root: "."})
//	rep, err := p.Run(ctx, files)
//	if err != nil { /* handle */ }
//	os.Exit(rep.Verdict.ExitCode())
package core

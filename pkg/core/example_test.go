package core_test

import (
	"context"
	"fmt"
	"os"

	"github.com/leakgate/leakgate/pkg/core"
)

// ExamplePipeline_Run scans the current directory under the default policy.
func ExamplePipeline_Run() {
	ctx := context.Background()
	p, err := core.NewPipeline(core.Options{Policy: core.DefaultPolicy()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		return
	}
	files, err := core.Walk(ctx, core.WalkConfig{Root: ".", DefaultExcludes: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "walk failed: %v\n", err)
		return
	}
	rep, err := p.Run(ctx, files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		return
	}
	if len(rep.Findings) == 0 {
		fmt.Println("No secrets found.")
	} else {
		_ = core.MarshalFindings(os.Stdout, rep.Findings)
	}
}

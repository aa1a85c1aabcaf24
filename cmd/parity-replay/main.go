package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"parity/internal/repro"
	"parity/internal/util"
)

func main() {
	caseDir := flag.String("case_dir", "", "path to case directory")
	problem := flag.String("problem", "", "replay against this catalog problem instead of the recorded one")
	verbose := flag.Bool("verbose", false, "log every replayed trial")
	flag.Parse()

	if *caseDir == "" {
		fmt.Fprintln(os.Stderr, "case_dir is required")
		flag.Usage()
		os.Exit(1)
	}
	util.SetVerbose(*verbose)

	results, err := repro.Run(context.Background(), repro.Options{CaseDir: *caseDir, Problem: *problem})
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
		os.Exit(1)
	}
	reproduced := 0
	for _, r := range results {
		if r.Reproduced {
			reproduced++
		}
		fmt.Printf("trial %d round=%d recorded=%s replayed=%s\n", r.Recorded.Index, r.Recorded.Round, r.Recorded.Verdict, r.Replayed.Verdict)
	}
	fmt.Printf("%d/%d counterexamples reproduced\n", reproduced, len(results))
	if reproduced < len(results) {
		os.Exit(2)
	}
}

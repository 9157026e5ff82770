// Package main implements the model-check CLI, which verifies the integrity
// of the model snapshots in a directory: every variable must have a snapshot
// that decompresses, decodes, and carries a full coefficient vector.
//
// Usage:
//
//	go run ./cmd/tools/model-check --models=./models
//
// Exit code 0 means all snapshots are intact; 1 means at least one issue was
// found (each issue is printed to stderr).
package main

import (
	"flag"
	"fmt"
	"os"

	"skycast/internal/predictor"
	"skycast/internal/types"
)

func main() {
	modelDir := flag.String("models", "./models", "Directory of model snapshots to verify")
	flag.Parse()

	store, err := predictor.NewStore(*modelDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	issues := store.Verify()
	if len(issues) == 0 {
		fmt.Printf("ok: %d model snapshots verified in %s\n", len(types.AllVariables()), *modelDir)
		return
	}

	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s\n", issue.Variable, issue.Problem)
	}
	os.Exit(1)
}

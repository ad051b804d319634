//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/serval-uni-lu/flakime/pkg/discovery"
	"github.com/serval-uni-lu/flakime/pkg/filter"
	"github.com/serval-uni-lu/flakime/pkg/javasrc"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/scan.go <class-dir> <source-dir>\n")
		os.Exit(1)
	}

	classDir, sourceDir := os.Args[1], os.Args[2]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	editor, err := javasrc.NewEditor(sourceDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "editor error: %v\n", err)
		os.Exit(1)
	}
	defer editor.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	result, err := discovery.Discover(ctx, logger, editor, classDir, sourceDir,
		discovery.WithAnnotationFilter(filter.MustNew("Test")),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discovery error: %v\n", err)
		os.Exit(1)
	}

	output := map[string]interface{}{
		"classFiles":   result.Stats.ClassFiles,
		"dropped":      result.Stats.ClassesDropped,
		"testClasses":  result.Stats.TestClasses,
		"testCount":    result.Project.CountTests(),
		"duration":     result.Stats.Duration.String(),
		"statements":   countStatements(result),
		"errorsByKind": countErrors(result),
	}
	json.NewEncoder(os.Stdout).Encode(output)
}

func countStatements(result *discovery.Result) map[string]int {
	counts := make(map[string]int)
	for _, test := range result.Project.TestMethods() {
		counts[test.LongName] = len(test.Statements)
	}
	return counts
}

func countErrors(result *discovery.Result) map[string]int {
	counts := make(map[string]int)
	for _, e := range result.Errors {
		counts[e.Phase]++
	}
	return counts
}

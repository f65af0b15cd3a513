package main

import (
	"time"

	"github.com/untoldecay/backlog/internal/resolver"
	"github.com/untoldecay/backlog/internal/tree"
)

type benchmarkResult struct {
	Iterations int     `json:"iterations"`
	Tasks      int     `json:"tasks"`
	LoadMs     float64 `json:"load_ms"`
	ResolveMs  float64 `json:"resolve_ms"`
}

func runBenchmark(iterations int) benchmarkResult {
	if iterations <= 0 {
		iterations = 1
	}
	dir := dataDir()
	var loadTotal, resolveTotal time.Duration
	taskCount := 0
	for i := 0; i < iterations; i++ {
		start := time.Now()
		loaded, err := tree.Load(dir)
		if err != nil {
			fatalError(err)
		}
		loadTotal += time.Since(start)
		taskCount = len(loaded.Tree.AllTasks())

		start = time.Now()
		res := resolver.New(loaded.Tree)
		if _, err := res.CriticalPath(); err == nil {
			res.FindAllAvailable()
		}
		resolveTotal += time.Since(start)
	}
	return benchmarkResult{
		Iterations: iterations,
		Tasks:      taskCount,
		LoadMs:     float64(loadTotal.Microseconds()) / float64(iterations) / 1000,
		ResolveMs:  float64(resolveTotal.Microseconds()) / float64(iterations) / 1000,
	}
}

// Package async runs independent named tasks concurrently and reports
// every failure. It backs the GPU validation pass, where each device is
// exercised in parallel and the caller only sees the combined outcome.
package async

import (
	"context"
	"fmt"
	"strings"
)

// Task is one named concurrent operation.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunAll executes all tasks concurrently and waits for every one to finish.
// It returns nil only when every task succeeded; otherwise the error names
// each failed task.
func RunAll(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(tasks))

	for _, task := range tasks {
		go func() {
			results <- result{name: task.Name, err: task.Func(ctx)}
		}()
	}

	failed := make(map[string]error, len(tasks))
	for range len(tasks) {
		res := <-results
		if res.err != nil {
			failed[res.name] = res.err
		}
	}
	if len(failed) == 0 {
		return nil
	}

	// Failures in task declaration order, not completion order.
	var parts []string
	for _, task := range tasks {
		if err, ok := failed[task.Name]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", task.Name, err))
		}
	}
	return fmt.Errorf("%d of %d tasks failed: %s", len(failed), len(tasks), strings.Join(parts, "; "))
}

// Package engine runs the bordereaux pipeline stages in order.
//
// Architecture:
//
// steps.go   - Step definitions (stage, inputs, references, outputs) and the alias registry
// runner.go  - Runner: loads inputs from an artifact store, executes a stage, checks the partition, writes outputs
// layout.go  - Well-known artifact paths relative to the store root
//
// Each invocation is traced, counted and, when a catalog is configured,
// recorded as a StageRun row. Dry runs execute the same chain against an
// overlay store so nothing on disk changes.
package engine

// Package sysinfo reports host sizing for worker-pool counts.
//
// Adapted from the teacher's sys package: same NumCPU role, minus the
// container-cgroup detection (texopt runs as an operator's local CLI tool,
// not a clustered daemon that needs to know it's been cgroup-capped inside
// Kubernetes).
package sysinfo

import "runtime"

// NumCPU returns the worker-pool sizing hint for Stage A (spec.md §4.6:
// "Stage A uses many workers... CPU-bound and pure").
func NumCPU() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

//go:build !debug_gpu_mem

package vkmem

// allocNames compiles down to nothing outside debug_gpu_mem builds.
type allocNames struct{}

func (n *allocNames) init() {}

func (n *allocNames) record(offset int, name string) {}

func (n *allocNames) forget(offset int) {}

func (n *allocNames) each(visit func(offset int, name string)) {}

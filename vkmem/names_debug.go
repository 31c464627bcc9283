//go:build debug_gpu_mem

package vkmem

import "github.com/dolthub/swiss"

// allocNames attributes live ranges to the resources that requested them, so
// exhaustion and leak logs can name the culprit.
type allocNames struct {
	byOffset *swiss.Map[int, string]
}

func (n *allocNames) init() {
	n.byOffset = swiss.NewMap[int, string](42)
}

func (n *allocNames) record(offset int, name string) {
	if name != "" {
		n.byOffset.Put(offset, name)
	}
}

func (n *allocNames) forget(offset int) {
	n.byOffset.Delete(offset)
}

func (n *allocNames) each(visit func(offset int, name string)) {
	n.byOffset.Iter(func(offset int, name string) bool {
		visit(offset, name)
		return false
	})
}

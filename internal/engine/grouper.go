package engine

import "github.com/dota-dot20/indexer/internal/model"

// GroupByExtrinsic splits one block's remarks into per-extrinsic runs. Input
// must already be sorted by (extrinsic_index, batchall_index, remark_index)
// — the Chain Client guarantees this. Grouping is a stable run-length split:
// consecutive remarks sharing the same extrinsic_index form one group, and
// the boundary is the first index where it changes (spec.md §4.2). This is
// total and infallible — it never discards a remark.
func GroupByExtrinsic(remarks []model.RawRemark) [][]model.RawRemark {
	return splitRuns(remarks, func(r model.RawRemark) uint32 { return r.ExtrinsicIdx })
}

// GroupByBatch splits one extrinsic's (already-filtered) remarks into
// batch-all runs, keyed on batchall_index. The Base Filter does not call it:
// it splits raw remarks by batchall_index with splitRuns directly.
func GroupByBatch(remarks []model.Remark) []model.Batch {
	runs := splitRuns(remarks, func(r model.Remark) uint32 { return r.BatchAllIdx })
	batches := make([]model.Batch, len(runs))
	for i, r := range runs {
		batches[i] = model.Batch(r)
	}
	return batches
}

// splitRuns performs an iterative run-length split on key(item). The
// original source recurses (_classify_batch_all); the design notes call that
// out as tail-recursive and sanction an iterative rewrite, which is what this
// is.
func splitRuns[T any](items []T, key func(T) uint32) [][]T {
	if len(items) == 0 {
		return nil
	}
	var groups [][]T
	start := 0
	startKey := key(items[0])
	for i := 1; i < len(items); i++ {
		k := key(items[i])
		if k != startKey {
			groups = append(groups, items[start:i])
			start = i
			startKey = k
		}
	}
	groups = append(groups, items[start:])
	return groups
}

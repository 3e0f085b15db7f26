// Package ledger tracks per-developer workload for a single rebalancing run.
//
// Ledger maps a developer username to a pair of weight accumulators: the
// weight of issues that are not waiting on review or test, and the weight of
// every issue. All updates saturate at the bounds of uint32 and are atomic per
// developer, so concurrent callers touching distinct developers never block
// each other while callers touching the same developer never lose an update.
package ledger

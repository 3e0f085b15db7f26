// Package rebalance moves low-priority issues out of an overloaded iteration.
//
// A run reads the current and next open iterations of a GitLab group, walks
// the issues planned for the current iteration twice, first to accumulate each
// developer's workload and then to decide which low-priority issues should be
// displaced, and submits every displacement as one batch mutation against the
// next iteration. The Cobra command in this package wires the run to
// configuration, token resolution and the GitLab client.
package rebalance

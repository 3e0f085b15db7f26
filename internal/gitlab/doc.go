// Package gitlab talks to the GitLab REST and GraphQL APIs on behalf of the
// iteration rebalancer.
//
// Client fetches the open iterations of a group, the open issues planned for
// an iteration across every project of the group (subgroups included), and
// submits a single composite issueSetIteration mutation that moves a batch
// of issues to another iteration. Read-only requests retry transient
// failures with exponential backoff; mutations are sent exactly once.
package gitlab

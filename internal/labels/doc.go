// Package labels derives scheduling facts from GitLab issue label titles.
package labels

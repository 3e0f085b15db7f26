// Package cli constructs the iterbot command-line interface. It wires the
// Cobra root command to the layered configuration loader and the zap logger
// and registers the rebalance subcommand.
package cli

// Package utils exposes helpers shared by the CLI and the rebalance command.
//
// ConfigurationLoader layers defaults, embedded YAML, configuration files and
// ITERBOT_* environment variables through Viper. LoggerFactory builds zap
// loggers for the configured level and format.
package utils

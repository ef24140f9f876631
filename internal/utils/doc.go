// Package utils exposes reusable helpers consumed by the command-line entrypoint.
//
// It houses ConfigurationLoader, which layers embedded defaults, configuration
// files, and environment variables through Viper, and LoggerFactory, which
// builds zap loggers that write to standard error.
package utils

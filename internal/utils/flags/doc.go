// Package flags provides pflag value types shared by the command-line interface.
package flags

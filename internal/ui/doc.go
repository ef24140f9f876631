// Package ui renders command execution feedback for console log output.
//
// ConsoleCommandEventLogger turns shell command lifecycle events into short
// messages so a person reading stderr can follow the remote HEAD refresh.
package ui

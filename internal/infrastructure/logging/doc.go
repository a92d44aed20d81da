// Package logging provides structured logging built on zap: JSON output
// in production, colored console output in development.
package logging

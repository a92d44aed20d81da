// Package types holds the shared data model: service and tool definitions,
// execution results, and the websocket wire schema.
package types

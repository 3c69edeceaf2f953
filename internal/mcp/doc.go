// Package mcp hosts the in-process tool server backing local tool execution.
//
// Tools are registered with MCP tool definitions and invoked directly rather
// than over a transport. Tool annotations drive execution scheduling: tools
// marked read-only may run concurrently, all others run sequentially.
package mcp

// Package driving provides interfaces for the engine's consumers
// (primary/inbound ports): the research agents, CLI and MCP surfaces.
package driving

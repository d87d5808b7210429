// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): storage, queue, embedding, vector and
// lexical indexes, and the external document store.
package driven

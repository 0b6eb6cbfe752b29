// Package driven defines the interfaces the core requires from its
// infrastructure: the source archive, the destination file collection,
// persistence, and external tooling. Adapters and connectors implement
// these interfaces.
package driven

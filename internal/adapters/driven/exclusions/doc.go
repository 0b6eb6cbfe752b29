// Package exclusions loads and serves the known-bad list: content
// identities that must never be uploaded. The list lives in a plain
// text file of hex digests, one per line, and can be reloaded while a
// run is in flight.
package exclusions

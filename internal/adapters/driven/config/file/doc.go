// Package file provides a TOML-backed configuration store kept under
// the shtocker config directory.
package file

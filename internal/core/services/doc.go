// Package services implements the core reconciliation logic: the
// engine that decides each exam's fate, the per-run destination
// inventory cache, and diet label extraction.
package services

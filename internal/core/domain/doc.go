// Package domain contains the core types of the reconciliation model:
// exams listed in the source archive, content identities derived from
// their bytes, destination categories, and the per-exam decisions a
// reconciliation run produces.
package domain

// Package sqlite provides persistent storage for credentials and run
// reports backed by a single SQLite database file.
package sqlite

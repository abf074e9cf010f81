// Package mock provides deterministic in-memory implementations of the
// ingest collaborator interfaces for tests and examples.
package mock

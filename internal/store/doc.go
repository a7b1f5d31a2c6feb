// Package store defines the persistence interfaces for the enrichment
// pipeline and shared database plumbing (DBTX abstraction, transaction
// helper, sentinel errors). Implementations live in
// internal/platform/postgres.
package store

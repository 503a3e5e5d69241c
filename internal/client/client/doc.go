// Package client contains local persistence bootstrap for the PhotoSafe CLI.
//
// # Overview
//
// The package provides:
//  1. Database bootstrap utilities (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//  2. A Repositories bundle grouping the repository implementations that
//     share one database handle (files, collections, watch mappings).
//
// Concurrency & Contexts
//
// The returned *sql.DB is safe for concurrent use. All operations accept
// context.Context and must honor cancellation/timeouts.
//
// See Also
//
//   - DB helpers: InitDatabase, RunMigrations
//   - Bundle:     Repositories, NewRepositories
package client

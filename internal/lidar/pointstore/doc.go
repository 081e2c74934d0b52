// Package pointstore holds ingested lidar returns and answers the per-cell
// aggregate queries the classifiers run.
//
// The store has two phases. While loading, records are appended in batches
// and no query is answered. Seal flushes the last batch and builds the cell
// key and Z indexes; from then on the store is read-only and safe for any
// number of concurrent readers. Backends (in-memory arena, SQLite,
// Postgres) only implement storage; the phase barrier lives in Store.
package pointstore

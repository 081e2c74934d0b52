// Package sqlite is the SQLite point store engine.
//
// All SQL for the point store lives in storage/sqlstore; this package owns
// the connection settings and the SQLite flavour of the schema migrations.
// Keeping the engine details here lets the classifiers run unchanged over
// SQLite, PostgreSQL or the in-memory backend.
package sqlite

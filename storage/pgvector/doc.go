// Package pgvector implements storage.DocumentStore on PostgreSQL with the
// pgvector extension, using database/sql over the pgx stdlib driver.
//
// Open bootstraps the schema from an embedded SQL script the first time it
// connects to a database.
package pgvector

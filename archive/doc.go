// Package archive keeps copies of uploaded sources.
//
// Archival is best effort: callers log a failed Store and carry on with the
// ingestion. Nop is used when no bucket is configured.
package archive

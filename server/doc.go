// Package server exposes the ingestion and answer operations over HTTP.
//
// Every route requires the pre-shared key in the x-api-key header. Errors
// are returned as JSON bodies carrying a stable code:
//
//	{"error": "...", "code": "invalid_arguments", "key": "api_key"}
//
// Trailing slashes are stripped, so /get-answer/ and /get-answer are the
// same route.
package server

// Package api implements the REST collaborator client: market data snapshots,
// order entry, wallet operations, and profile access. Requests carry the
// bearer token from the auth package and retry transient failures with
// jittered exponential backoff.
package api

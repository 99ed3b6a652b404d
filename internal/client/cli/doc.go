// Package cli implements the foreground command line of vaxsync.
//
// Commands write records and their outbox entries straight into the shared
// local store and then nudge the agent over its control endpoint. Agent
// commands (status, sync, clear-cache, skip-waiting) only talk to the
// control endpoint.
//
// Examples:
//
//	vaxsync session set --owner MOSIP-1 --role healthcare_worker --token -
//	vaxsync record add --patient MOSIP-1 --vaccine BCG --date 2026-01-10
//	vaxsync record list --patient MOSIP-1 --format json
//	vaxsync status
//	vaxsync logout
package cli

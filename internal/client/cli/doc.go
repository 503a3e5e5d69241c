// Package cli implements the PhotoSafe command-line client.
//
// # Overview
//
// The package wires configuration, the local SQLite database, the backend
// API client and the upload, watch and download components into an App,
// then dispatches one-shot commands:
//
//	upload       — encrypt and upload a folder into a collection
//	watch        — manage watched folders; 'watch run' follows them
//	export       — download and decrypt a collection
//	collections  — list known collections
//
// Secrets
//
// The API token comes from the configured token file or an interactive
// no-echo terminal prompt. The master key that wraps collection keys is
// generated on first run and kept next to the database; it never leaves
// the device.
package cli

// Command relayctl is the operator CLI for the media relay.
//
// Usage:
//
//	relayctl <command>
//
// Commands:
//
//	run <url>   Process one link locally: download, compress and write the
//	            result to OUTBOX_DIR. Exits non-zero when nothing was
//	            delivered.
//
//	hash-token  Read an API token twice without echo and print its bcrypt
//	            hash, for use as API_TOKEN_HASH.
//
//	runs        Show the most recent entries of the run journal in
//	            DATABASE_DIR.
//
// run reads the same size, ladder and tool variables as the server; WORK_DIR
// defaults to a temporary directory and OUTBOX_DIR to ./outbox.
package main

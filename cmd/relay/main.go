// Relay is a pass-through gateway in front of an OpenAI-compatible chat
// completions API.
//
// It keeps a bounded pool of upstream sessions keyed by caller credential,
// dispatches single-shot and streaming requests with per-request
// cancellation, and classifies upstream failures into a fixed taxonomy.
//
// Usage:
//
//	# Start the server with environment configuration only
//	relay run
//
//	# Start with a configuration file (hot-reloaded)
//	relay run --config /etc/relay/config.yaml
//
//	# Check a configuration file
//	relay config validate --config config.yaml
//
//	# Summarize the last day of usage from the SQLite ledger
//	relay usage --db data/usage.db --since 24h
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}

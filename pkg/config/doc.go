// Package config provides configuration management for the relay.
//
// Configuration is loaded from an optional YAML file, then overridden from the
// environment, then validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("relay.yaml")
//
// # Environment Variable Overrides
//
// Variables follow the naming convention RELAY_SECTION_FIELD:
//
//   - RELAY_PROXY_LISTEN_ADDRESS overrides proxy.listen_address
//   - RELAY_UPSTREAM_API_KEY overrides upstream.api_key
//   - RELAY_POOL_MAX_SESSIONS overrides pool.max_sessions
//
// The variable names of earlier deployments are also honoured, with lower
// precedence: OPENAI_API_KEY, OPENAI_BASE_URL, AZURE_API_VERSION,
// ANTHROPIC_API_KEY, HOST, PORT, LOG_LEVEL, REQUEST_TIMEOUT (seconds),
// MAX_TOKENS_LIMIT, MIN_TOKENS_LIMIT, BIG_MODEL, MIDDLE_MODEL, SMALL_MODEL.
//
// # Example Configuration
//
//	proxy:
//	  listen_address: "0.0.0.0:8082"
//	upstream:
//	  base_url: "https://api.openai.com/v1"
//	  timeout: 90s
//	pool:
//	  max_sessions: 50
//	  idle_ttl: 1h
//	  sweep_interval: 5m
//	models:
//	  big: gpt-4o
//	  small: gpt-4o-mini
//	usage:
//	  backend: sqlite
//	  sqlite:
//	    path: data/usage.db
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//
// # Hot Reload
//
// Watcher reloads the file on change. Only the log level and model mapping are
// applied live; pool sizing and listen address require a restart.
package config

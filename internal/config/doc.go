// Package config provides configuration loading, merging, and path management.
//
// # Configuration Loading
//
// Load searches for and merges configuration from several sources. Later
// sources win:
//
//  1. Global config (~/.config/companion/companion.json[c], XDG compatible)
//  2. Project config (<dir>/companion.json[c])
//  3. Project config (<dir>/.companion/companion.json[c])
//  4. COMPANION_CONFIG file
//  5. COMPANION_CONFIG_CONTENT inline JSON
//  6. Environment variables
//
// Files may be JSON or JSONC; comments are stripped with tidwall/jsonc.
//
// # Variable Interpolation
//
// Configuration files support two placeholders:
//   - {env:VAR_NAME} expands to the environment variable value
//   - {file:path} expands to file contents, escaped for a JSON string
//
// Example:
//
//	{
//	  "model": "anthropic/claude-sonnet-4-20250514",
//	  "provider": {
//	    "anthropic": { "apiKey": "{env:ANTHROPIC_API_KEY}" }
//	  },
//	  "music": { "accessToken": "{file:~/.spotify-token}" },
//	  "personalities": ["~/.config/companion/personalities/**/*.yaml"]
//	}
//
// # Environment Variable Overrides
//
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, ARK_API_KEY, ARK_MODEL_ID
//   - COMPANION_MODEL overrides the model
//   - COMPANION_PORT overrides the server port
//   - SEARXNG_URL configures the web search backend
//   - SPOTIFY_ACCESS_TOKEN configures the music tools
//   - COMPANION_LOG_LEVEL overrides the log level
//
// # Defaults
//
// Resolve fills every unset field with the values in defaults.go so that the
// rest of the program can read settings without nil checks.
package config

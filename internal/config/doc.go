// Package config loads the consolidation service configuration.
//
// Values are layered in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. config.yaml (GSC_CONFIG_FILE, ./config.yaml or ./configs/config.yaml)
//	3. Default() values (lowest priority)
//
// Environment variables follow the GSC_<SECTION>_<FIELD> pattern:
//
//	GSC_SERVER_PORT=8080
//	GSC_LOGGING_LEVEL=debug
//	GSC_CONSOLIDATION_MIN_CLICKS=5
//	GSC_CONSOLIDATION_OUTPUT_FORMAT=csv
//	GSC_SEARCH_CONSOLE_CREDENTIALS_FILE=/etc/gsc/key.json
//
// The loaded configuration is validated with struct tags before use.
package config

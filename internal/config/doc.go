// Package config provides centralized configuration management for fnopulse.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML configuration file
//  3. Default values (lowest priority)
//
// The file is taken from FNO_CONFIG_FILE, or the first of config.yaml,
// configs/config.yaml and ../configs/config.yaml that exists.
//
// # Environment Variables
//
// All environment variables use the FNO_ prefix followed by the section
// and field name:
//
//	FNO_SERVER_PORT=8080
//	FNO_LOGGING_LEVEL=debug
//	FNO_DATA_SOURCE_URL=https://example.com/options_data.csv
//	FNO_DATA_RETRY_MAX_ATTEMPTS=5
//	FNO_BHAVCOPY_REQUEST_INTERVAL=3s
//
// # Paths
//
// Relative paths resolve against the executable's directory unless
// FNO_PATHS_BASE_DIR is set. The dataset file resolves against the data
// directory.
package config

// Package config provides configuration management for the Maestro assistant backend.
//
// # Overview
//
// The config package uses Viper to load configuration from YAML files and
// environment variables. It provides a type-safe configuration structure with
// validation, default values, and automatic file creation.
//
// # Configuration File
//
// The configuration is stored at ~/.maestro/config.yaml and is automatically
// created with sensible defaults on first use. The file structure mirrors
// the Go structs defined in this package.
//
// # Environment Variables
//
// All configuration values can be overridden using environment variables
// with the MAESTRO_ prefix. Nested fields are separated by underscores.
//
// Examples:
//   - MAESTRO_SERVER_PORT=9000
//   - MAESTRO_LLM_PROVIDER=ollama
//   - MAESTRO_LOGGING_LEVEL=debug
//
// Credentials are additionally bound to their conventional upstream names,
// so GEMINI_API_KEY, YOUTUBE_API_KEY, SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET,
// OPENWEATHER_API_KEY and SESSION_SECRET work without the prefix.
//
// # Usage Example
//
//	package main
//
//	import (
//	    "log"
//	    "github.com/maestro-ai/maestro/internal/config"
//	)
//
//	func main() {
//	    cfg, err := config.Load()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := cfg.Validate(); err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = cfg
//	}
package config

// Package config provides configuration loading and validation for the assessment service.
// It reads a YAML file on top of built-in defaults, applies PARKINSON_* environment
// overrides (a .env file is honoured) and validates every section before use.
package config

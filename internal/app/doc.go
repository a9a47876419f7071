// Package app wires the configured components into a ready-to-run assessment
// pipeline. Both the HTTP service and the command-line tool build on it.
package app

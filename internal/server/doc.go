// Package server implements the HTTP API: recording upload and assessment,
// stored assessment lookup, and the health, configuration, statistics and
// Prometheus monitoring endpoints.
package server

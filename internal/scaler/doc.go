// Package scaler applies persisted per-feature standardization to feature vectors.
// Transforms are stored as JSON next to the models; a missing transform is fitted on
// the first vector it sees and written to disk for later requests.
package scaler

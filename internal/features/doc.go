// Package features builds the named acoustic feature vectors consumed by the scalers and models.
// Raw jitter, shimmer, pitch and harmonicity measures come from an external acoustic-analysis
// service; this package derives the remaining measures and lays them out in the fixed
// classification and regression schemas.
package features

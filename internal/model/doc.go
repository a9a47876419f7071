// Package model loads pre-trained predictors from disk and evaluates them on scaled feature vectors.
package model

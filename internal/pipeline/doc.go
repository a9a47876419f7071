// Package pipeline runs one assessment end to end: audio preparation, feature extraction,
// scaling, classification, the four UPDRS regressions and the final decision.
// Each call is independent; nothing from one request is visible to another.
package pipeline

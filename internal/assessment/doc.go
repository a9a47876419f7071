// Package assessment turns model outputs into a severity verdict.
// It combines the classifier probability with the age-aware and age-agnostic
// UPDRS regressions using a fixed weighted ensemble and a four-tier threshold policy.
package assessment

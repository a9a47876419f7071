// Package history persists completed assessments in an embedded SQLite database
// so they can be listed and inspected after the request that produced them.
package history

// Package notify publishes assessment verdicts to an MQTT broker so downstream
// dashboards can follow results without polling the HTTP API.
package notify

// Package postgres implements the "pgnotify" relay client, publishing events
// through PostgreSQL LISTEN/NOTIFY.
package postgres

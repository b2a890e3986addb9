// Package store provides persistence for users, events, event members and reminders.
// It works on top of sqlx with two dialects, SQLite (WAL mode, foreign keys on)
// as the default embedded backend and PostgreSQL for shared deployments.
// Timestamps are kept as unix milliseconds so comparisons and ordering behave
// the same on both backends.
package store

// Package storage is the relational store behind the power, character and
// roll-table commands, plus an audit trail of moderation and admin actions.
//
// One implementation on database/sql serves two dialects: SQLite through
// modernc.org/sqlite (default, pure Go) and PostgreSQL through lib/pq.
// Queries are written once with "?" placeholders and rebound per dialect.
//
// Rows are owned by the member that created them: update and delete match
// creator_id and report ErrNotFoundOrNotPermitted when nothing matched.
package storage

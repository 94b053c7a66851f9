// Package scheduler fires named jobs on cron schedules (robfig/cron).
//
// Schedules are keyed by name: adding a name that already exists replaces the
// previous entry, and Remove cancels it. Definitions survive Stop/Start and a
// timezone change, so callers register once and the service re-installs them.
package scheduler

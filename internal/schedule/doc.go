// Package schedule implements the Schedule capability consumed by the
// scheduler: given a reference instant, compute the next instant at which a
// scheduled task is due.
//
// Two implementations are provided:
//   - delta.go  — fixed-interval schedules ("every 10 seconds")
//   - cron.go   — cron-expression schedules, backed by robfig/cron/v3
package schedule

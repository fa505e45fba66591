// Package retention prunes stored decisions by age and by count, optionally
// archiving them to JSON first, on a cron schedule.
package retention

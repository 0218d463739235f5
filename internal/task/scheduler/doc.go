// Package scheduler drives a job on a cron or interval schedule.
//
// The Loop runs one job at a time. The next trigger is computed only after
// the previous run has returned, so runs never overlap and a slow run
// simply delays the next one. Each run gets its own deadline.
package scheduler

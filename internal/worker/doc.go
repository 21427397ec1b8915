// Package worker implements the download worker runtime (WR): it drives
// one accepted job end to end, translating fetch-library progress events
// into normalized, append-only status updates and, when the job
// completes, into a history store row. A job that ends in ERROR or
// CANCELLED writes no history row.
package worker

// Package history implements the history/state store: the normalized
// download_history table plus one dynamically-created child table per
// album/playlist parent, with idempotent additive-ALTER schema evolution
// run on every startup so existing databases upgrade in place without
// ever dropping a column.
package history

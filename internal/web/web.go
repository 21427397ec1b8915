// Package web is a placeholder.
//
// A full HTTP surface (route handlers, HTML templates, a browser UI)
// is out of scope here: HTTP route handlers are named as
// out-of-scope collaborators, with only a thin SSE adapter over
// taskstore.TaskLog.Subscribe expected to exist, which lives in
// internal/server instead of here. This package carries no code.
package web

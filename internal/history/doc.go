// Package history records completed organize and undo runs in a SQLite
// database so past activity can be inspected after log files are pruned.
package history

// Package organize walks the configured source directories and moves each
// file to its categorized destination, recording every completed move in an
// undo log. One run holds an exclusive lock; a second concurrent run fails
// fast instead of interleaving moves.
package organize

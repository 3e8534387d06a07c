// Package rules compiles category rule definitions into a validated catalog
// mapping file extensions to categories and sub-buckets. The catalog is built
// once at startup; ambiguous or malformed definitions are rejected then, not
// silently resolved at classification time.
package rules

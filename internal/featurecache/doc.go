// Package featurecache stores sampling results in SQLite so repeated runs
// over an unchanged asset skip the expensive frame pass. Entries are keyed
// by asset and options fingerprints and are immutable once written; a file
// lock plus in-process call deduplication keep concurrent runs from
// sampling the same asset twice.
package featurecache

// Package store defines the persistence contract for normalized feed
// records plus the filter and pagination helpers shared by callers.
// Implementations live in subpackages; this package must not import
// database drivers or concrete clients.
package store

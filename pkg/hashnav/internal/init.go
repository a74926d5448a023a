// Package internal contains shared infrastructure for hashnav: logging setup
// and text helpers. Types and functions in this package are not part of the
// public API.
package internal

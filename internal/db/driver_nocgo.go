//go:build !cgo

// Without cgo, fall back to the pure-Go modernc.org/sqlite driver
// (registered under "sqlite" by its own init), matching the teacher's
// dual-driver setup for CGO_ENABLED=0 builds.
package db

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

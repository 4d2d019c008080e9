//go:build cgo

// With cgo available, the cgo-native mattn/go-sqlite3 driver registers
// itself under "sqlite3" on import; db.go opens driverName against that
// name instead of the pure-Go modernc.org/sqlite driver. Matches the
// teacher's own dual-driver setup, which ships both and picks one per
// build.
package db

import (
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

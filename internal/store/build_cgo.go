//go:build cgo && !purego

package store

import (
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the registered database/sql driver for this build.
const DriverName = "sqlite3"

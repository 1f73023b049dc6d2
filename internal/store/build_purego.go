//go:build !cgo || purego

package store

import (
	_ "modernc.org/sqlite"
)

// DriverName is the registered database/sql driver for this build.
const DriverName = "sqlite"

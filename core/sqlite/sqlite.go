// Package sqlite opens SQLite databases through the pure Go modernc.org/sqlite
// driver, so exports build with CGO_ENABLED=0.
//
// Use Open instead of sql.Open so every caller gets the same driver name and
// connection pragmas.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const (
	driverName    = "sqlite"
	driverPackage = "modernc.org/sqlite"
)

// Open opens a SQLite database with foreign keys enabled. The pool holds a
// single connection so the pragma applies to every statement.
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return db, nil
}

// OpenReadOnly opens a SQLite database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return sql.Open(driverName, "file:"+path+"?mode=ro")
}

// Info identifies the driver behind Open. Exports record it in their meta
// table.
type Info struct {
	DriverName string `json:"driver_name"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		Package:    driverPackage,
	}
}

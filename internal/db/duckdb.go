package db

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	openErr  error
)

// Get returns the shared in-memory DuckDB connection used to query history
// export files. DuckDB works best over a single connection, so the pool is
// pinned to one.
func Get() (*sql.DB, error) {
	once.Do(func() {
		instance, openErr = open()
	})
	return instance, openErr
}

func open() (*sql.DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	// read_json needs the JSON extension.
	if _, err := conn.Exec("INSTALL json"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to install JSON extension: %w", err)
	}
	if _, err := conn.Exec("LOAD json"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to load JSON extension: %w", err)
	}
	return conn, nil
}

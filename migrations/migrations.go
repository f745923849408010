// Package migrations embeds the SQL migrations of every service that owns a
// database. Each service keeps its files in a subdirectory named after it.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed */*.sql
var files embed.FS

// For returns the migrations of one service.
func For(service string) (fs.FS, error) {
	return fs.Sub(files, service)
}

package initialize

import (
	"path/filepath"

	"github.com/Paintersrp/listingnotes/internal/config"
	"github.com/Paintersrp/listingnotes/internal/constants"
)

// Backends lists the store kinds offered during setup, in display order.
var Backends = []string{"file", "sqlite", "postgres", "s3", "memory"}

// DefaultDSN returns the suggested DSN for backend.
func DefaultDSN(backend, home string) string {
	switch backend {
	case "sqlite":
		return "sqlite://" + filepath.ToSlash(filepath.Join(home, constants.ConfigDir, "store.db"))
	case "postgres":
		return "postgres://localhost:5432/listingnotes"
	case "s3":
		return "s3://listingnotes/notes?region=us-east-1"
	case "memory":
		return "memory://"
	default:
		return config.DefaultStoreDSN(home)
	}
}

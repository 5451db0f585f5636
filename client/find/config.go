package find

import (
	"os"

	"github.com/0xADE/ade-find/internal/config"
)

// SocketPath returns the daemon socket: ADE_FIND_SOCK when set, the
// per-user default otherwise
func SocketPath() (string, error) {
	if socketPath := os.Getenv("ADE_FIND_SOCK"); socketPath != "" {
		return config.ExpandPath(socketPath), nil
	}
	return config.DefaultSocketPath()
}

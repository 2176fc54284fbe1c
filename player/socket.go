package player

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/log"
)

const staleDialTimeout = 200 * time.Millisecond

// RemoveStaleSockets deletes IPC sockets in dir left behind by players that
// crashed. Sockets still accepting connections belong to a running player and are kept.
func RemoveStaleSockets(dir string) {
	sockets, err := filepath.Glob(filepath.Join(dir, constant.App+"-*.sock"))
	if err != nil {
		return
	}

	for _, socket := range sockets {
		conn, err := net.DialTimeout("unix", socket, staleDialTimeout)
		if err == nil {
			_ = conn.Close()
			continue
		}

		if err := os.Remove(socket); err != nil && !os.IsNotExist(err) {
			log.Warnf("player: removing stale socket %s: %s", socket, err)
			continue
		}
		log.Debugf("player: removed stale socket %s", socket)
	}
}

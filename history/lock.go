package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/drmplay-cli/drmplay/log"
)

// ErrLocked is returned when another process holds the history lock for too long.
var ErrLocked = errors.New("history is locked by another process")

var (
	lockRetry = 20 * time.Millisecond
	lockWait  = 5 * time.Second
	// a lock older than this was left behind by a process that died
	lockStale = 30 * time.Second
)

// lockFile creates path.lock exclusively and returns the function releasing it.
func lockFile(path string) (unlock func(), err error) {
	api := filesystem.API()
	lock := path + ".lock"

	if err := api.MkdirAll(filepath.Dir(lock), os.ModePerm); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(lockWait)
	for {
		file, err := api.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = fmt.Fprint(file, os.Getpid())
			_ = file.Close()
			return func() { _ = api.Remove(lock) }, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}

		if info, statErr := api.Stat(lock); statErr == nil && time.Since(info.ModTime()) > lockStale {
			log.Warnf("history: removing stale lock %s", lock)
			_ = api.Remove(lock)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, lock)
		}
		time.Sleep(lockRetry)
	}
}

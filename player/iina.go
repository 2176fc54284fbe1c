package player

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/drmplay-cli/drmplay/log"
)

// IINA plays media through the macOS IINA app. LaunchServices gives no control channel
// back, so positions cannot be read or restored.
type IINA struct {
	cmd    *exec.Cmd
	exited chan struct{}
	once   sync.Once
}

// NewIINA creates an idle IINA player.
func NewIINA() *IINA {
	return &IINA{
		exited: make(chan struct{}),
	}
}

func (p *IINA) Play(media *Media) error {
	if runtime.GOOS != "darwin" {
		return errors.New("IINA is only supported on macOS")
	}

	if p.cmd != nil {
		return errors.New("IINA is already running")
	}

	args, err := buildIINAArgs(media)
	if err != nil {
		return err
	}

	p.cmd = exec.Command("open", args...)
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("LaunchServices failed to invoke IINA: %w", err)
	}

	go func() {
		_ = p.cmd.Wait()
		p.once.Do(func() { close(p.exited) })
	}()

	log.Infof("iina: playing %q", media.Title)
	return nil
}

// buildIINAArgs forwards mpv options through IINA's --mpv- prefix.
func buildIINAArgs(media *Media) ([]string, error) {
	mpvArgs, err := buildArgs(media, "")
	if err != nil {
		return nil, err
	}

	args := []string{"-W", "-a", "IINA", "--args"}
	for _, arg := range mpvArgs {
		switch {
		case arg == "--":
			continue
		case strings.HasPrefix(arg, "--input-ipc-server="),
			strings.HasPrefix(arg, "--no-terminal"),
			strings.HasPrefix(arg, "--really-quiet"):
			continue
		case strings.HasPrefix(arg, "--"):
			args = append(args, "--mpv-"+strings.TrimPrefix(arg, "--"))
		default:
			args = append(args, arg)
		}
	}

	return args, nil
}

func (p *IINA) Wait() <-chan struct{} {
	return p.exited
}

func (p *IINA) Seek(time.Duration) error           { return ErrUnsupported }
func (p *IINA) GetTimePos() (time.Duration, error) { return 0, ErrUnsupported }

// IsLive always reports true so that no position is stored for a session that cannot report one.
func (p *IINA) IsLive() (bool, error) { return true, nil }

// Subscribe only reports the end of playback.
func (p *IINA) Subscribe(handler func(Event)) error {
	go func() {
		<-p.exited
		handler(Event{Kind: EventEnd})
	}()
	return nil
}

func (p *IINA) Close() error {
	return terminate(p.cmd)
}

package player

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/log"
	"github.com/drmplay-cli/drmplay/where"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	socketWaitRetries = 20
	socketWaitDelay   = 150 * time.Millisecond
	quitTimeout       = 3 * time.Second
	eventBuffer       = 64
)

var streamSchemes = []string{"http", "https", "rtmp", "rtmps", "rtsp", "rtsps", "srt", "udp", "rtp"}

// MPV drives an mpv process over its JSON-IPC socket.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	ipc        *ipcClient
	mu         sync.Mutex
}

// NewMPV creates an idle mpv player.
func NewMPV() *MPV {
	return &MPV{
		exited: make(chan struct{}),
	}
}

// Play launches mpv for media and connects to its IPC socket.
func (m *MPV) Play(media *Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd != nil {
		return errors.New("mpv is already running")
	}

	if media.DRM.IsPresent() {
		drm := media.DRM.MustGet()
		log.WithFields(logrus.Fields{
			"system_id": drm.SystemID.String(),
			"license":   drm.LicenseURI,
		}).Warn("mpv: DRM protected stream, mpv has no license session support and will play it as is")
	}

	if m.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		m.socketPath = filepath.Join(where.Temp(), fmt.Sprintf("%s-%x.sock", constant.App, randomBytes))
	}

	args, err := buildArgs(media, m.socketPath)
	if err != nil {
		return err
	}

	m.cmd = exec.Command("mpv", args...)
	m.cmd.SysProcAttr = ownGroup()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	conn, err := m.dialSocket()
	if err != nil {
		select {
		case <-m.exited:
		default:
			log.Warn("killing mpv: socket never became ready")
			_ = terminate(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.ipc = newIPCClient(conn)
	log.Infof("mpv: playing %q on %s", media.Title, m.socketPath)
	return nil
}

// buildArgs returns the mpv command line for media. Only the socket, title, headers and
// target are passed so the user's mpv.conf stays in charge of everything else.
func buildArgs(media *Media, socketPath string) ([]string, error) {
	target, err := sanitizeMediaTarget(media.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid media target: %w", err)
	}

	title := sanitizeTitle(media.Title)

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--input-ipc-server=" + socketPath,
		"--force-media-title=" + title,
		"--title=" + title,
		"--force-window=yes",
	}

	for _, name := range media.Headers.Names() {
		value := sanitizeTitle(media.Headers[name])
		if strings.EqualFold(name, "User-Agent") {
			args = append(args, "--user-agent="+value)
			continue
		}
		// -append adds one item, so commas inside values are not treated as separators
		args = append(args, fmt.Sprintf("--http-header-fields-append=%s: %s", name, value))
	}

	args = append(args, "--", target)
	return args, nil
}

func (m *MPV) dialSocket() (net.Conn, error) {
	for range socketWaitRetries {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return nil, errors.New("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) client() (*ipcClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ipc == nil {
		return nil, errors.New("mpv is not running")
	}
	return m.ipc, nil
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

// Subscribe observes position and pause changes and forwards them, together with
// playback-restart and end-file, to handler.
func (m *MPV) Subscribe(handler func(Event)) error {
	ipc, err := m.client()
	if err != nil {
		return err
	}
	return subscribe(ipc, handler)
}

func subscribe(ipc *ipcClient, handler func(Event)) error {
	events := make(chan Event, eventBuffer)

	ipc.setEventHandler(func(raw ipcEvent) {
		event, ok := translate(raw)
		if !ok {
			return
		}

		if event.Kind == EventPosition {
			// positions arrive every frame, a dropped one is superseded by the next
			select {
			case events <- event:
			default:
			}
			return
		}

		select {
		case events <- event:
		case <-ipc.closed():
		}
	})

	go func() {
		for {
			select {
			case event := <-events:
				handler(event)
			case <-ipc.closed():
				for {
					select {
					case event := <-events:
						handler(event)
					default:
						return
					}
				}
			}
		}
	}()

	for _, prop := range observedProperties {
		if _, err := ipc.call("observe_property", prop.id, prop.name); err != nil {
			return fmt.Errorf("observe %s: %w", prop.name, err)
		}
	}

	names := lo.Map(observedProperties, func(p observedProperty, _ int) string {
		return p.name
	})
	log.Infof("mpv: observing %s", strings.Join(names, ", "))
	return nil
}

// GetTimePos returns the current playback position.
func (m *MPV) GetTimePos() (time.Duration, error) {
	seconds, err := m.getFloatProperty("time-pos")
	if err != nil {
		return 0, err
	}
	return secondsToDuration(seconds), nil
}

// IsLive reports true when mpv cannot seek in the media or does not know its duration.
func (m *MPV) IsLive() (bool, error) {
	ipc, err := m.client()
	if err != nil {
		return false, err
	}
	return isLive(ipc)
}

func isLive(ipc *ipcClient) (bool, error) {
	data, err := ipc.call("get_property", "seekable")
	if err != nil {
		return false, err
	}

	var seekable bool
	if err := json.Unmarshal(data, &seekable); err != nil {
		return false, fmt.Errorf("property seekable: %w", err)
	}
	if !seekable {
		return true, nil
	}

	data, err = ipc.call("get_property", "duration")
	if err != nil {
		// mpv reports "property unavailable" when the duration is unknown
		if strings.Contains(err.Error(), "property unavailable") {
			return true, nil
		}
		return false, err
	}

	var duration *float64
	if err := json.Unmarshal(data, &duration); err != nil || duration == nil {
		return true, nil
	}
	return *duration <= 0, nil
}

// Seek moves playback to an absolute position.
func (m *MPV) Seek(position time.Duration) error {
	ipc, err := m.client()
	if err != nil {
		return err
	}
	_, err = ipc.call("seek", position.Seconds(), "absolute")
	return err
}

// Close asks mpv to quit, kills it if it does not, and removes the socket.
func (m *MPV) Close() error {
	m.mu.Lock()
	ipc, cmd := m.ipc, m.cmd
	m.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if ipc != nil {
		_, _ = ipc.call("quit")
	}

	select {
	case <-m.exited:
	case <-time.After(quitTimeout):
		_ = terminate(cmd)
	}

	if ipc != nil {
		_ = ipc.close()
	}
	_ = os.Remove(m.socketPath)

	return nil
}

func (m *MPV) getFloatProperty(name string) (float64, error) {
	ipc, err := m.client()
	if err != nil {
		return 0, err
	}

	data, err := ipc.call("get_property", name)
	if err != nil {
		return 0, err
	}

	var value *float64
	if err := json.Unmarshal(data, &value); err != nil {
		return 0, fmt.Errorf("property %s: %w", name, err)
	}
	if value == nil {
		return 0, fmt.Errorf("property %s: nil response", name)
	}

	return *value, nil
}

// sanitizeMediaTarget rejects targets mpv would read as options and URL schemes
// that are not network streams.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", errors.New("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", errors.New("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", errors.New("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		if !lo.Contains(streamSchemes, strings.ToLower(u.Scheme)) {
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
		return l, nil
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}

package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/drmplay-cli/drmplay/log"
)

// ErrIPCClosed is returned for commands sent after the connection went away.
var ErrIPCClosed = errors.New("ipc connection closed")

const (
	commandTimeout = 2 * time.Second
	maxMessageSize = 1 << 20
)

type ipcCommand struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipcMessage is any newline-delimited JSON object mpv writes to the socket.
// Replies carry a request_id, events carry an event name.
type ipcMessage struct {
	ipcEvent
	RequestID *int64 `json:"request_id"`
	Error     string `json:"error"`
}

type ipcReply struct {
	data json.RawMessage
	err  error
}

// ipcClient multiplexes commands and events over one mpv socket connection.
type ipcClient struct {
	conn    net.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan ipcReply
	onEvent func(ipcEvent)

	done chan struct{}
}

func newIPCClient(conn net.Conn) *ipcClient {
	c := &ipcClient{
		conn:    conn,
		pending: make(map[int64]chan ipcReply),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// setEventHandler replaces the callback receiving unsolicited events.
func (c *ipcClient) setEventHandler(handler func(ipcEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEvent = handler
}

// call sends a command and waits for its reply.
func (c *ipcClient) call(command ...any) (json.RawMessage, error) {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return nil, ErrIPCClosed
	default:
	}
	c.nextID++
	id := c.nextID
	reply := make(chan ipcReply, 1)
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(ipcCommand{Command: command, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	_, err = c.conn.Write(append(payload, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	select {
	case r := <-reply:
		return r.data, r.err
	case <-c.done:
		return nil, ErrIPCClosed
	case <-time.After(commandTimeout):
		return nil, fmt.Errorf("ipc command %v timed out", command[0])
	}
}

func (c *ipcClient) readLoop() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxMessageSize)

	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			log.Debugf("mpv: skipping unparseable message: %s", err)
			continue
		}

		switch {
		case msg.Event != "":
			c.mu.Lock()
			handler := c.onEvent
			c.mu.Unlock()
			if handler != nil {
				handler(msg.ipcEvent)
			}
		case msg.RequestID != nil:
			c.mu.Lock()
			reply, ok := c.pending[*msg.RequestID]
			c.mu.Unlock()
			if !ok {
				continue
			}

			var err error
			if msg.Error != "" && msg.Error != "success" {
				err = fmt.Errorf("mpv error: %s", msg.Error)
			}
			reply <- ipcReply{data: msg.Data, err: err}
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warnf("mpv: ipc read error: %s", err)
	}
}

// closed is closed once the connection stops delivering messages.
func (c *ipcClient) closed() <-chan struct{} {
	return c.done
}

func (c *ipcClient) close() error {
	return c.conn.Close()
}

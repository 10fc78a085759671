// Package wm talks to the remote window manager's IPC socket (the
// i3/sway protocol). The bridge uses it for two things: querying the
// output layout so warp coordinates can be translated to
// output-relative positions, and subscribing to cursor_warp events
// emitted by the compositor when another client warps the pointer.
package wm

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/bnema/waybridge/internal/logger"
)

// Message types of the i3 IPC protocol. Replies carry the request
// type; events carry the event type with the high bit set.
const (
	msgTypeSubscribe  = 2
	msgTypeGetOutputs = 3

	eventFlag       = uint32(1) << 31
	eventOutput     = eventFlag | 1
	eventShutdown   = eventFlag | 6
	eventCursorWarp = eventFlag | 22
)

var ipcMagic = []byte("i3-ipc")

// Event is implemented by all window manager notifications.
type Event interface{ wmEvent() }

// OutputChanged reports that the output layout may have moved.
type OutputChanged struct{}

// CursorWarp reports a pointer warp to global layout coordinates.
type CursorWarp struct {
	X int64
	Y int64
}

// Shutdown reports that the window manager is exiting.
type Shutdown struct{}

func (OutputChanged) wmEvent() {}
func (CursorWarp) wmEvent()    {}
func (Shutdown) wmEvent()      {}

// Output describes one entry of the output layout.
type Output struct {
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	Rect   OutputRect `json:"rect"`
}

// OutputRect is the output's rectangle in global layout coordinates.
type OutputRect struct {
	X      int64 `json:"x"`
	Y      int64 `json:"y"`
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

type cursorWarpPayload struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

type subscribeReply struct {
	Success bool `json:"success"`
}

// Client is a connection to the window manager IPC socket. Queries
// and the event stream share the connection; replies are matched to
// requests in order, which the protocol guarantees.
//
// Events are staged through an unbounded internal queue so the read
// loop keeps consuming the socket while a query blocks for its reply;
// an event burst ahead of the reply must not stall it.
type Client struct {
	conn   net.Conn
	events chan Event

	mu      sync.Mutex
	replies chan reply
	closed  bool

	qmu    sync.Mutex
	qcond  *sync.Cond
	queue  []Event
	hangup bool
}

type reply struct {
	msgType uint32
	payload []byte
}

// Dial connects to the window manager IPC socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the window manager: %w", err)
	}
	c := &Client{
		conn:    conn,
		events:  make(chan Event, 64),
		replies: make(chan reply, 4),
	}
	c.qcond = sync.NewCond(&c.qmu)
	go c.readLoop()
	go c.deliverLoop()
	return c, nil
}

// Events yields window manager notifications. The channel closes when
// the connection drops, which the caller treats as fatal.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Outputs queries the current output layout.
func (c *Client) Outputs() ([]Output, error) {
	payload, err := c.roundtrip(msgTypeGetOutputs, nil)
	if err != nil {
		return nil, err
	}
	var outputs []Output
	if err := json.Unmarshal(payload, &outputs); err != nil {
		return nil, fmt.Errorf("failed to decode output layout: %w", err)
	}
	return outputs, nil
}

// Subscribe registers for the given event names.
func (c *Client) Subscribe(names ...string) error {
	body, err := json.Marshal(names)
	if err != nil {
		return err
	}
	payload, err := c.roundtrip(msgTypeSubscribe, body)
	if err != nil {
		return err
	}
	var rep subscribeReply
	if err := json.Unmarshal(payload, &rep); err != nil {
		return fmt.Errorf("failed to decode subscribe reply: %w", err)
	}
	if !rep.Success {
		return fmt.Errorf("window manager rejected the subscription")
	}
	return nil
}

// Close shuts the connection down.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundtrip(msgType uint32, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("window manager connection is closed")
	}
	if err := c.send(msgType, payload); err != nil {
		return nil, err
	}
	rep, ok := <-c.replies
	if !ok {
		return nil, fmt.Errorf("window manager hung up")
	}
	if rep.msgType != msgType {
		return nil, fmt.Errorf("window manager reply type %d does not match request type %d", rep.msgType, msgType)
	}
	return rep.payload, nil
}

func (c *Client) send(msgType uint32, payload []byte) error {
	header := make([]byte, len(ipcMagic)+8)
	copy(header, ipcMagic)
	binary.LittleEndian.PutUint32(header[len(ipcMagic):], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[len(ipcMagic)+4:], msgType)
	if _, err := c.conn.Write(header); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := c.conn.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) enqueue(ev Event) {
	c.qmu.Lock()
	c.queue = append(c.queue, ev)
	c.qmu.Unlock()
	c.qcond.Signal()
}

// deliverLoop moves staged events onto the channel the bridge reads,
// drains what was queued before the hangup, then closes the channel.
func (c *Client) deliverLoop() {
	defer close(c.events)
	for {
		c.qmu.Lock()
		for len(c.queue) == 0 && !c.hangup {
			c.qcond.Wait()
		}
		if len(c.queue) == 0 {
			c.qmu.Unlock()
			return
		}
		ev := c.queue[0]
		c.queue = c.queue[1:]
		c.qmu.Unlock()
		c.events <- ev
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.replies)

		c.qmu.Lock()
		c.hangup = true
		c.qmu.Unlock()
		c.qcond.Signal()
	}()

	header := make([]byte, len(ipcMagic)+8)
	for {
		if _, err := io.ReadFull(c.conn, header); err != nil {
			return
		}
		if string(header[:len(ipcMagic)]) != string(ipcMagic) {
			logger.Error("window manager stream lost framing")
			return
		}
		length := binary.LittleEndian.Uint32(header[len(ipcMagic):])
		msgType := binary.LittleEndian.Uint32(header[len(ipcMagic)+4:])
		payload := make([]byte, length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return
		}

		if msgType&eventFlag == 0 {
			c.replies <- reply{msgType: msgType, payload: payload}
			continue
		}

		switch msgType {
		case eventOutput:
			c.enqueue(OutputChanged{})
		case eventCursorWarp:
			var warp cursorWarpPayload
			if err := json.Unmarshal(payload, &warp); err != nil {
				logger.Warnf("failed to decode cursor warp event: %v", err)
				continue
			}
			c.enqueue(CursorWarp{X: warp.X, Y: warp.Y})
		case eventShutdown:
			c.enqueue(Shutdown{})
		}
	}
}

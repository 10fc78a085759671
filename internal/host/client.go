package host

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/bnema/waybridge/internal/logger"
)

// Client implements Bus over the player's Unix IPC socket. Commands
// are newline-delimited JSON; replies are correlated by request id
// while asynchronous events flow to the Events channel.
//
// Events are staged through an unbounded internal queue: the read
// loop must keep consuming the socket while the bridge blocks in a
// roundtrip, so a burst of property changes queued ahead of a reply
// can never stall reply delivery.
type Client struct {
	conn   net.Conn
	events chan Event

	mu        sync.Mutex
	nextReqID int64
	nextObsID int64
	pending   map[int64]chan response
	observed  map[string]int64 // property name -> observe id
	closed    bool

	qmu    sync.Mutex
	qcond  *sync.Cond
	queue  []Event
	hangup bool
}

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type response struct {
	Data  any    `json:"data"`
	Error string `json:"error"`
}

// incoming covers both replies and events; Event is empty on replies.
type incoming struct {
	Event     string `json:"event"`
	Name      string `json:"name"`
	Data      any    `json:"data"`
	Error     string `json:"error"`
	RequestID int64  `json:"request_id"`
}

// Dial connects to the player's IPC socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to host player socket: %w", err)
	}

	c := &Client{
		conn:     conn,
		events:   make(chan Event, 64),
		pending:  make(map[int64]chan response),
		observed: make(map[string]int64),
	}
	c.qcond = sync.NewCond(&c.qmu)
	go c.readLoop()
	go c.deliverLoop()
	return c, nil
}

// Events implements Bus.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Observe starts watching a property for changes.
func (c *Client) Observe(name string) error {
	c.mu.Lock()
	c.nextObsID++
	id := c.nextObsID
	c.observed[name] = id
	c.mu.Unlock()

	_, err := c.roundtrip("observe_property", id, name)
	if err != nil {
		return fmt.Errorf("failed to observe %q: %w", name, err)
	}
	return nil
}

// Unobserve stops watching a property.
func (c *Client) Unobserve(name string) error {
	c.mu.Lock()
	id, ok := c.observed[name]
	delete(c.observed, name)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("property %q is not observed", name)
	}

	_, err := c.roundtrip("unobserve_property", id)
	if err != nil {
		return fmt.Errorf("failed to unobserve %q: %w", name, err)
	}
	return nil
}

// Get reads a property value once.
func (c *Client) Get(name string) (any, error) {
	resp, err := c.roundtrip("get_property", name)
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", name, err)
	}
	return resp.Data, nil
}

// Set writes a property value.
func (c *Client) Set(name string, value any) error {
	if _, err := c.roundtrip("set_property", name, value); err != nil {
		return fmt.Errorf("failed to set %q: %w", name, err)
	}
	return nil
}

// Close tears down the connection; the events channel closes once the
// read loop observes the hangup and the queue drains.
func (c *Client) Close() error {
	return c.conn.Close()
}

// roundtrip sends one command and blocks for its reply. The bridge is
// single-threaded, so at most a handful of these ever overlap.
func (c *Client) roundtrip(args ...any) (response, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return response{}, fmt.Errorf("connection closed")
	}
	c.nextReqID++
	id := c.nextReqID
	ch := make(chan response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return response{}, err
	}
	payload = append(payload, '\n')
	if _, err := c.conn.Write(payload); err != nil {
		return response{}, err
	}

	resp, ok := <-ch
	if !ok {
		return response{}, fmt.Errorf("connection closed")
	}
	if resp.Error != "" && resp.Error != "success" {
		return response{}, fmt.Errorf("player replied %q", resp.Error)
	}
	return resp, nil
}

func (c *Client) enqueue(ev Event) {
	c.qmu.Lock()
	c.queue = append(c.queue, ev)
	c.qmu.Unlock()
	c.qcond.Signal()
}

// deliverLoop moves staged events onto the channel the bridge reads.
// It drains whatever the read loop queued before the hangup, then
// closes the channel.
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
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()

		c.qmu.Lock()
		c.hangup = true
		c.qmu.Unlock()
		c.qcond.Signal()
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg incoming
		if err := json.Unmarshal(line, &msg); err != nil {
			logger.Warnf("malformed message from host player: %v", err)
			continue
		}

		switch {
		case msg.Event == "property-change":
			c.enqueue(PropertyChange{Name: msg.Name, Data: msg.Data})
		case msg.Event == "shutdown":
			c.enqueue(Shutdown{})
		case msg.Event == "":
			c.mu.Lock()
			ch, ok := c.pending[msg.RequestID]
			c.mu.Unlock()
			if ok {
				ch <- response{Data: msg.Data, Error: msg.Error}
			}
		default:
			// Other player events are not interesting to the bridge.
		}
	}
}

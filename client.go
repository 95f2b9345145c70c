package concord4

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	logp "github.com/charmbracelet/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"nhooyr.io/websocket"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "concord4ws",
})

const timeout = 5 * time.Second

var (
	ErrCannotConnect = errors.New("cannot connect")
	ErrNotConnected  = errors.New("not connected")
)

type Option func(*Client)

// WithTimeout sets how long dials and command writes may take.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMaxReconnectInterval caps the wait between reconnect attempts.
func WithMaxReconnectInterval(d time.Duration) Option {
	return func(c *Client) { c.maxInterval = d }
}

func WithLogger(l *logp.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client talks to a concord4ws server. State pushed by the server is kept
// in memory and callbacks registered for the touched ids are fired after
// each push.
type Client struct {
	url         string
	timeout     time.Duration
	maxInterval time.Duration
	log         *logp.Logger

	mu        sync.RWMutex
	state     State
	conn      *websocket.Conn
	connected bool

	cbs callbacks

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func New(host string, port int, opts ...Option) *Client {
	cli := &Client{
		url:         "ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/",
		timeout:     timeout,
		maxInterval: 30 * time.Second,
		log:         log,
		state: State{
			Partitions: map[int]Partition{},
			Zones:      map[string]Zone{},
		},
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// TestConnect checks the server is reachable, without keeping the
// connection.
func (c *Client) TestConnect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
	return nil
}

// Connect establishes the persistent connection and waits for the server's
// first state snapshot, so the state getters are populated once it returns.
// Pushes are then processed, and the connection is re-established in the
// background until Close is called.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	if err := c.awaitState(ctx, conn); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return fmt.Errorf("%w: %s: no state received: %w", ErrCannotConnect, c.url, err)
	}
	c.setConn(conn)
	c.log.Info("connected", "url", c.url)

	c.wg.Add(1)
	go c.loop(conn)
	return nil
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) Panel() Panel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Panel
}

// Partitions returns every known partition, ordered by number.
func (c *Client) Partitions() []Partition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := maps.Keys(c.state.Partitions)
	slices.Sort(keys)
	parts := make([]Partition, 0, len(keys))
	for _, k := range keys {
		p := c.state.Partitions[k]
		p.Zones = append([]string(nil), p.Zones...)
		parts = append(parts, p)
	}
	return parts
}

func (c *Client) Partition(number int) (Partition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.state.Partitions[number]
	p.Zones = append([]string(nil), p.Zones...)
	return p, ok
}

// Zones returns every known zone, ordered by id.
func (c *Client) Zones() []Zone {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := maps.Keys(c.state.Zones)
	slices.Sort(keys)
	zones := make([]Zone, 0, len(keys))
	for _, k := range keys {
		zones = append(zones, c.state.Zones[k])
	}
	return zones
}

func (c *Client) Zone(id string) (Zone, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	z, ok := c.state.Zones[id]
	return z, ok
}

// Snapshot returns a deep copy of the current state.
func (c *Client) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// RegisterCallback registers fn to run whenever an update for id arrives.
// Calling the returned function removes it; doing so more than once is a
// no-op.
func (c *Client) RegisterCallback(id CallbackID, fn func()) func() {
	return c.cbs.register(id, fn)
}

func (c *Client) Arm(ctx context.Context, mode ArmMode, code []Keypress, level ArmLevel, partition int) error {
	c.log.Debug("arm", "mode", mode, "level", level, "partition", partition)
	if err := c.send(ctx, command{
		Command:   cmdArm,
		Mode:      mode,
		Level:     level,
		Partition: partition,
		Keys:      code,
	}); err != nil {
		return fmt.Errorf("could not arm %s partition %d: %w", mode, partition, err)
	}
	return nil
}

func (c *Client) Disarm(ctx context.Context, code []Keypress, partition int) error {
	c.log.Debug("disarm", "partition", partition)
	if err := c.send(ctx, command{
		Command:   cmdDisarm,
		Partition: partition,
		Keys:      code,
	}); err != nil {
		return fmt.Errorf("could not disarm partition %d: %w", partition, err)
	}
	return nil
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.connected = false
		c.mu.Unlock()
		if conn != nil {
			err = conn.Close(websocket.StatusNormalClosure, "")
		}
		c.wg.Wait()
	})
	return err
}

func (c *Client) send(ctx context.Context, cmd command) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}

	payload, err := makeCommand(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCannotConnect, c.url, err)
	}
	conn.SetReadLimit(1 << 20)
	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = conn != nil
	c.mu.Unlock()
	c.cbs.fireAll()
}

func (c *Client) loop(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		err := c.read(conn)
		select {
		case <-c.done:
			return
		default:
		}

		c.log.Warn("connection lost", "err", err)
		c.setConn(nil)

		conn = c.reconnect()
		if conn == nil {
			return
		}
		select {
		case <-c.done:
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		default:
		}
		c.setConn(conn)
		c.log.Info("reconnected", "url", c.url)
	}
}

func (c *Client) read(conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		c.mu.Lock()
		ids, err := apply(&c.state, msg)
		c.mu.Unlock()
		if err != nil {
			c.log.Warn("ignoring message", "err", err)
			continue
		}

		for _, id := range ids {
			if id == CallbackAll {
				c.cbs.fireAll()
				continue
			}
			c.cbs.fire(id)
		}
	}
}

// awaitState applies messages until a full snapshot arrives. Callbacks are
// not fired, setConn fires all of them once connected.
func (c *Client) awaitState(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		env, err := decode(msg)
		if err == nil {
			c.mu.Lock()
			_, err = applyEnvelope(&c.state, env)
			c.mu.Unlock()
		}
		if err != nil {
			c.log.Warn("ignoring message", "err", err)
			continue
		}
		if env.Type == msgState {
			return nil
		}
	}
}

// reconnect blocks until a new connection is made, or returns nil if the
// client was closed first.
func (c *Client) reconnect() *websocket.Conn {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = c.maxInterval
	bo.MaxElapsedTime = 0

	var conn *websocket.Conn
	if err := backoff.RetryNotify(func() error {
		var err error
		conn, err = c.dial(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		c.log.Error("could not reconnect", "err", err, "retry", d)
	}); err != nil {
		return nil
	}
	return conn
}

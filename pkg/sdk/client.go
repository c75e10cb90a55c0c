package sdk

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-console/internal/engine"
)

const maxAttempts = 3

// Client is a remote collection store speaking the console's TCP line protocol.
// It implements CollectionStore, so a console process can share another process's store.
type Client struct {
	addr    string
	useTLS  bool
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex // protects the connection
	conn   net.Conn
	reader *bufio.Reader
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTLS enables or disables TLS. TLS is on by default.
func WithTLS(enabled bool) ClientOption {
	return func(c *Client) { c.useTLS = enabled }
}

// WithTimeout sets the per-command deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithClientLogger sets the logger used for retry diagnostics.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// Connect dials the store at addr.
func Connect(addr string, opts ...ClientOption) (*Client, error) {
	c := &Client{addr: addr, useTLS: true, timeout: 30 * time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	var conn net.Conn
	var err error
	if c.useTLS {
		config := &tls.Config{
			InsecureSkipVerify: true, // the daemon serves a self-signed certificate
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	} else {
		conn, err = dialer.Dial("tcp", c.addr)
	}
	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// roundTrip sends one command line and returns the payload after "OK".
// Transport failures are retried with backoff on a fresh connection;
// an ERR reply is returned immediately.
func (c *Client) roundTrip(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for i := 0; i < maxAttempts; i++ {
		if c.conn == nil {
			if rerr := c.reconnect(); rerr != nil {
				err = fmt.Errorf("reconnect failed: %w", rerr)
				time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
				continue
			}
		}

		c.conn.SetDeadline(time.Now().Add(c.timeout))

		var resp string
		if _, err = fmt.Fprint(c.conn, cmd+"\n"); err == nil {
			resp, err = c.reader.ReadString('\n')
			if err == nil {
				return parseReply(strings.TrimSpace(resp))
			}
		}

		c.logger.Warn("store command failed, reconnecting",
			slog.Int("attempt", i+1), slog.String("addr", c.addr), slog.String("error", err.Error()))
		if rerr := c.reconnect(); rerr != nil {
			c.logger.Warn("store reconnect failed", slog.String("error", rerr.Error()))
		}
		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}
	return "", fmt.Errorf("failed after %d attempts: %w", maxAttempts, err)
}

func parseReply(resp string) (string, error) {
	switch {
	case resp == "OK" || resp == "PONG":
		return "", nil
	case strings.HasPrefix(resp, "OK "):
		return strings.TrimPrefix(resp, "OK "), nil
	case strings.HasPrefix(resp, "ERR"):
		msg := strings.TrimSpace(strings.TrimPrefix(resp, "ERR"))
		if msg == engine.ErrCollectionNotFound.Error() {
			return "", ErrCollectionNotFound
		}
		return "", errors.New(msg)
	default:
		return "", fmt.Errorf("unexpected reply %q", resp)
	}
}

func (c *Client) Read(name string) ([]byte, error) {
	payload, err := c.roundTrip("READ " + name)
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

// Write sends data on a single line; payloads must not contain raw newlines,
// which holds for any JSON produced by encoding/json or compacted by the caller.
func (c *Client) Write(name string, data []byte) error {
	if strings.ContainsAny(string(data), "\r\n") {
		return engine.ErrInvalidJSON
	}
	_, err := c.roundTrip("WRITE " + name + " " + string(data))
	return err
}

func (c *Client) Delete(name string) error {
	_, err := c.roundTrip("DEL " + name)
	return err
}

func (c *Client) Collections() ([]string, error) {
	payload, err := c.roundTrip("LIST")
	if err != nil {
		return nil, err
	}
	list := []string{}
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		return nil, fmt.Errorf("decode collection list: %w", err)
	}
	return list, nil
}

// Ping checks the connection.
func (c *Client) Ping() error {
	_, err := c.roundTrip("PING")
	return err
}

// Close says goodbye to the daemon and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}

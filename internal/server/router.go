// Package server exposes a collection store over a line-oriented TCP protocol.
//
//	READ <collection>          -> OK <json> | ERR <msg>
//	WRITE <collection> <json>  -> OK | ERR <msg>
//	DEL <collection>           -> OK | ERR <msg>
//	LIST                       -> OK <json array of names>
//	PING                       -> PONG
//	QUIT                       closes the connection
package server

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-console/pkg/sdk"
)

const maxConnections = 100

type Router struct {
	store  sdk.CollectionStore
	cert   *tls.Certificate
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

func NewRouter(s sdk.CollectionStore) *Router {
	return &Router{store: s, logger: slog.Default()}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// SetLogger replaces the router logger.
func (r *Router) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Addr returns the listening address, or nil before Listen has bound.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop is called.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		listener.Close()
		return nil
	}
	r.listener = listener
	r.mu.Unlock()

	semaphore := make(chan struct{}, maxConnections)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.logger.Warn("accept failed", slog.String("error", err.Error()))
			continue
		}

		// Bound idle connections so they cannot pin a slot forever.
		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.HandleConnection(c)
		}(conn)
	}
}

// Stop closes the listener. Open connections finish their current command.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.listener == nil {
		return nil
	}
	err := r.listener.Close()
	r.listener = nil
	return err
}

// HandleConnection serves commands from conn until QUIT, EOF or an idle timeout.
func (r *Router) HandleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// The payload of WRITE is the raw remainder of the line.
		parts := strings.SplitN(line, " ", 3)
		command := strings.ToUpper(parts[0])

		switch command {
		case "READ":
			if len(parts) < 2 {
				fmt.Fprintln(conn, "ERR usage: READ <collection>")
				continue
			}
			data, err := r.store.Read(parts[1])
			if err == nil {
				data, err = singleLine(data)
			}
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK", string(data))
			}

		case "WRITE":
			if len(parts) < 3 {
				fmt.Fprintln(conn, "ERR usage: WRITE <collection> <json>")
				continue
			}
			if err := r.store.Write(parts[1], []byte(parts[2])); err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "DEL":
			if len(parts) < 2 {
				fmt.Fprintln(conn, "ERR usage: DEL <collection>")
				continue
			}
			if err := r.store.Delete(parts[1]); err != nil {
				fmt.Fprintln(conn, "ERR", err)
			} else {
				fmt.Fprintln(conn, "OK")
			}

		case "LIST":
			list, err := r.store.Collections()
			if err != nil {
				fmt.Fprintln(conn, "ERR", err)
				continue
			}
			res, err := json.Marshal(list)
			if err != nil {
				fmt.Fprintln(conn, "ERR internal error")
			} else {
				fmt.Fprintln(conn, "OK", string(res))
			}

		case "PING":
			fmt.Fprintln(conn, "PONG")

		case "QUIT":
			return

		default:
			fmt.Fprintln(conn, "ERR unknown command", command)
		}
	}
}

// singleLine compacts a payload that spans lines so a reply never breaks framing.
func singleLine(data []byte) ([]byte, error) {
	if !bytes.ContainsAny(data, "\r\n") {
		return data, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("collection is not valid JSON")
	}
	return buf.Bytes(), nil
}

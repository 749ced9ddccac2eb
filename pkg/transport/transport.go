// Package transport wires an agent.Engine to a net.Conn: a background
// read loop feeds bytes to the engine and its send hook writes straight
// to the connection. Client is a synchronous convenience wrapper for
// programs that just want to call GetIdentities/Sign and block; ServeConn
// runs the server role over one accepted connection.
package transport

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/pactsec/agentwire/pkg/agent"
)

const sshAuthSockEnv = "SSH_AUTH_SOCK"

// Client is a blocking client-role adapter over a single connection.
type Client struct {
	conn   net.Conn
	engine *agent.Engine
}

// ConnectTo dials the unix socket at sockName and returns a ready Client.
func ConnectTo(sockName string, parser agent.KeyParser) (*Client, error) {
	conn, err := net.Dial("unix", sockName)
	if err != nil {
		return nil, err
	}
	return newClient(conn, parser), nil
}

// Connect dials the socket named by SSH_AUTH_SOCK.
func Connect(parser agent.KeyParser) (*Client, error) {
	sockName := os.Getenv(sshAuthSockEnv)
	if sockName == "" {
		return nil, fmt.Errorf("transport: %s is not set", sshAuthSockEnv)
	}
	return ConnectTo(sockName, parser)
}

func newClient(conn net.Conn, parser agent.KeyParser) *Client {
	c := &Client{conn: conn}
	c.engine = agent.NewClientEngine(func(b []byte) error {
		_, err := conn.Write(b)
		return err
	}, parser)
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if ierr := c.engine.Ingest(buf[:n]); ierr != nil {
				return
			}
		}
		if err != nil {
			c.engine.Abort(fmt.Errorf("%w: %v", agent.ErrTransportFailure, err))
			return
		}
	}
}

// GetIdentities blocks for the agent's reply to REQUEST_IDENTITIES.
func (c *Client) GetIdentities() ([]agent.ParsedKey, error) {
	type result struct {
		keys []agent.ParsedKey
		err  error
	}
	done := make(chan result, 1)
	if err := c.engine.GetIdentities(func(keys []agent.ParsedKey, err error) {
		done <- result{keys, err}
	}); err != nil {
		return nil, err
	}
	r := <-done
	return r.keys, r.err
}

// Sign blocks for the agent's reply to a SIGN_REQUEST for key over data.
func (c *Client) Sign(key agent.ParsedKey, data []byte, opts *agent.SignOptions) ([]byte, error) {
	type result struct {
		sig []byte
		err error
	}
	done := make(chan result, 1)
	if err := c.engine.Sign(key, data, opts, func(sig []byte, err error) {
		done <- result{sig, err}
	}); err != nil {
		return nil, err
	}
	r := <-done
	return r.sig, r.err
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ServeConn runs the server role of the protocol over conn until it is
// closed or a protocol error occurs. It returns nil on a clean close.
func ServeConn(conn net.Conn, parser agent.KeyParser,
	onIdentities func(*agent.InboundRequest),
	onSign func(*agent.InboundRequest, agent.ParsedKey, []byte, agent.SignFlags)) error {
	engine := agent.NewServerEngine(func(b []byte) error {
		_, err := conn.Write(b)
		return err
	}, parser, onIdentities, onSign)

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if ierr := engine.Ingest(buf[:n]); ierr != nil {
				return ierr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

package agent

import "fmt"

// Role selects which half of the protocol an Engine implements.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Engine is a duplex protocol object parameterized by Role. It consumes
// inbound bytes via Ingest and produces outbound bytes through the send
// function supplied at construction. An Engine is owned by a single caller
// and is not safe for concurrent use.
//
// In the client role, Engine matches inbound replies against a FIFO of
// outstanding requests. In the server role, Engine emits replies in the
// order requests arrived, regardless of the order in which they are
// answered.
type Engine struct {
	role   Role
	send   func([]byte) error
	parser KeyParser
	framer *Framer
	failed error

	// client role
	pending []pendingRequest

	// server role
	inbound      []*InboundRequest
	onIdentities func(*InboundRequest)
	onSign       func(*InboundRequest, ParsedKey, []byte, SignFlags)
}

// pendingRequest is one outstanding client-role request awaiting its reply.
// The two concrete implementations, identitiesCall and signCall, know their
// own request type and how to fail themselves; handleClientFrame type-
// switches on the FIFO head to deliver a successful reply.
type pendingRequest interface {
	requestType() MessageType
	fail(err error)
}

type identitiesCall struct {
	cb func([]ParsedKey, error)
}

func (c *identitiesCall) requestType() MessageType { return RequestIdentities }
func (c *identitiesCall) fail(err error)           { c.cb(nil, err) }
func (c *identitiesCall) succeed(keys []ParsedKey) { c.cb(keys, nil) }

type signCall struct {
	cb func([]byte, error)
}

func (c *signCall) requestType() MessageType { return SignRequest }
func (c *signCall) fail(err error)           { c.cb(nil, err) }
func (c *signCall) succeed(sig []byte)       { c.cb(sig, nil) }

// SignOptions customizes a client Sign request.
type SignOptions struct {
	// Hash selects the RSA-SHA2 variant to request: "", "sha256", or
	// "sha512". Ignored unless the target key is of type ssh-rsa.
	Hash string
}

// SignFlags describes the hash variant a server-role Sign event was asked
// to use.
type SignFlags struct {
	// Hash is "", "sha256", or "sha512".
	Hash string
}

// NewClientEngine returns an Engine in the client role. send is invoked
// with each complete outbound frame; parser converts key blobs received
// from the peer into ParsedKey values.
func NewClientEngine(send func([]byte) error, parser KeyParser) *Engine {
	return &Engine{role: RoleClient, send: send, parser: parser, framer: NewFramer()}
}

// NewServerEngine returns an Engine in the server role. onIdentities and
// onSign are invoked as REQUEST_IDENTITIES and SIGN_REQUEST frames are
// decoded; either may be nil, in which case the corresponding request is
// answered with FAILURE immediately.
func NewServerEngine(send func([]byte) error, parser KeyParser,
	onIdentities func(*InboundRequest), onSign func(*InboundRequest, ParsedKey, []byte, SignFlags)) *Engine {
	return &Engine{
		role:         RoleServer,
		send:         send,
		parser:       parser,
		framer:       NewFramer(),
		onIdentities: onIdentities,
		onSign:       onSign,
	}
}

// Ingest feeds newly-received bytes to the engine. Bytes are processed in
// the order delivered; every whole frame buffered is decoded and
// dispatched before Ingest returns. If a prior call left the engine in a
// failed state, Ingest is a no-op that returns that error.
func (e *Engine) Ingest(data []byte) error {
	if e.failed != nil {
		return e.failed
	}
	e.framer.Ingest(data)
	for {
		frame, ok, err := e.framer.Next()
		if err != nil {
			e.failAll(fmt.Errorf("%w: %v", ErrMalformedMessage, err))
			return e.failed
		}
		if !ok {
			return nil
		}
		switch e.role {
		case RoleClient:
			e.handleClientFrame(frame)
		case RoleServer:
			e.handleServerFrame(frame)
		}
		if e.failed != nil {
			return e.failed
		}
	}
}

// ReadNextFrame pulls one already-buffered frame without dispatching it.
// Engine's own Ingest drains frames as they arrive, so this is mainly
// useful for tests and introspection.
func (e *Engine) ReadNextFrame() (Frame, bool, error) {
	return e.framer.Next()
}

// Abort fails the engine and sweeps every pending client callback with err
// exactly once. It is the hook a transport adapter calls when the
// underlying stream closes, ends, or errors.
func (e *Engine) Abort(err error) {
	e.failAll(err)
}

func (e *Engine) failAll(err error) {
	if e.failed != nil {
		return
	}
	e.failed = err
	pending := e.pending
	e.pending = nil
	for _, p := range pending {
		p.fail(err)
	}
}

// popPending removes and returns the FIFO head, or nil if none is
// outstanding.
func (e *Engine) popPending() pendingRequest {
	if len(e.pending) == 0 {
		return nil
	}
	p := e.pending[0]
	e.pending = e.pending[1:]
	return p
}

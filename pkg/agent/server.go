package agent

import (
	"fmt"

	"github.com/pactsec/agentwire/pkg/wire"
)

// InboundRequest is one request received by a server-role Engine. It is
// created when the request frame is decoded and handed to onIdentities or
// onSign; the application answers it later, in whatever order it likes, by
// calling FailureReply, IdentitiesReply, or SignReply. The Engine itself
// holds these in arrival order and only writes a reply to the wire once
// every request ahead of it has also been answered.
type InboundRequest struct {
	engine      *Engine
	requestType MessageType
	answered    bool
	response    []byte

	// context is opaque data the engine attaches at decode time for use
	// when constructing the reply. For a SIGN_REQUEST it is the
	// signature-format identifier SignReply embeds ahead of the
	// signature: "rsa-sha2-256"/"rsa-sha2-512" for RSA with a hash flag,
	// otherwise the key's own type.
	context string
}

// IdentityEntry is one identity offered in reply to REQUEST_IDENTITIES.
// Either Key or Blob must be set. When Key is set and Comment is empty,
// Key.Comment() supplies the wire comment.
type IdentityEntry struct {
	Key     ParsedKey
	Blob    []byte
	Comment string
}

// FailureReply answers req with FAILURE. A second reply to an
// already-answered request is a no-op: it returns nil without writing
// anything further.
func (req *InboundRequest) FailureReply() error {
	if req.answered {
		return nil
	}
	if err := req.checkReply(0); err != nil {
		return err
	}
	req.answered = true
	req.response = EncodeFrame(Failure, nil)
	return req.engine.flush()
}

// IdentitiesReply answers a REQUEST_IDENTITIES request with entries. A
// second reply to an already-answered request is a no-op: it returns nil
// without writing anything further.
func (req *InboundRequest) IdentitiesReply(entries []IdentityEntry) error {
	if req.answered {
		return nil
	}
	if err := req.checkReply(RequestIdentities); err != nil {
		return err
	}
	req.answered = true
	req.response = EncodeFrame(IdentitiesAnswer, encodeIdentitiesAnswerBody(entries))
	return req.engine.flush()
}

// SignReply answers a SIGN_REQUEST request with signature, the raw
// signature bytes produced by the signing backend. The wire reply embeds
// req's signature-format context ahead of it: body =
// string( string(req.context) || string(signature) ). A second reply to an
// already-answered request is a no-op: it returns nil without writing
// anything further.
func (req *InboundRequest) SignReply(signature []byte) error {
	if req.answered {
		return nil
	}
	if err := req.checkReply(SignRequest); err != nil {
		return err
	}
	if len(signature) == 0 {
		return fmt.Errorf("%w: empty signature", ErrInvalidArgument)
	}
	req.answered = true
	inner := append(wire.SerializeString(req.context), wire.SerializeString(signature)...)
	req.response = EncodeFrame(SignResponse, wire.SerializeString(inner))
	return req.engine.flush()
}

// checkReply validates a reply call against req's request type, when want
// is nonzero. Callers check req.answered themselves, since a repeat reply
// is a no-op rather than an error.
func (req *InboundRequest) checkReply(want MessageType) error {
	if want != 0 && req.requestType != want {
		return fmt.Errorf("%w: reply does not match request type", ErrInvalidArgument)
	}
	return nil
}

// handleServerFrame decodes one inbound request frame, appends it to the
// FIFO, and dispatches it to the registered callback.
func (e *Engine) handleServerFrame(f Frame) {
	switch f.Type {
	case RequestIdentities:
		req := &InboundRequest{engine: e, requestType: RequestIdentities}
		e.inbound = append(e.inbound, req)
		// Unexpected data after the type byte is malformed: answer
		// FAILURE in order, as for a malformed SIGN_REQUEST.
		if len(f.Payload) != 0 || e.onIdentities == nil {
			req.FailureReply()
			return
		}
		e.onIdentities(req)

	case SignRequest:
		cur := wire.NewCursor(f.Payload)
		blob, err := cur.ReadString()
		if err == nil {
			var data []byte
			data, err = cur.ReadString()
			if err == nil {
				var flags uint32
				flags, err = cur.ReadUint32()
				if err == nil {
					e.dispatchSignRequest(blob, data, flags)
					return
				}
			}
		}
		// Underrun: still push a request into the FIFO and answer it
		// with FAILURE immediately, preserving emission order.
		req := &InboundRequest{engine: e, requestType: SignRequest}
		e.inbound = append(e.inbound, req)
		req.FailureReply()

	default:
		if isReplyMessageType(f.Type) {
			e.failAll(fmt.Errorf("%w: reply-shaped message %v sent to server", ErrUnexpectedMessage, f.Type))
			return
		}
		// Unknown message types: push and fail the same way as a
		// malformed SIGN_REQUEST.
		req := &InboundRequest{engine: e, requestType: f.Type}
		e.inbound = append(e.inbound, req)
		req.FailureReply()
	}
}

// isReplyMessageType reports whether t is one of the codes this engine
// only ever sends, never accepts, in the server role.
func isReplyMessageType(t MessageType) bool {
	switch t {
	case Failure, IdentitiesAnswer, SignResponse:
		return true
	default:
		return false
	}
}

func (e *Engine) dispatchSignRequest(blob, data []byte, flags uint32) {
	req := &InboundRequest{engine: e, requestType: SignRequest}
	e.inbound = append(e.inbound, req)

	key, err := e.parser.Parse(blob)
	if err != nil || e.onSign == nil {
		req.FailureReply()
		return
	}
	signFlags := deriveSignFlags(key.Type(), flags)
	req.context = signContext(key.Type(), signFlags)
	e.onSign(req, key, data, signFlags)
}

// signContext computes the signature-format identifier to embed in a
// SIGN_RESPONSE: the negotiated RSA-SHA2 algorithm name when one was
// requested, otherwise the key's own type.
func signContext(keyType string, flags SignFlags) string {
	switch flags.Hash {
	case "sha256":
		return "rsa-sha2-256"
	case "sha512":
		return "rsa-sha2-512"
	default:
		return keyType
	}
}

// flush writes the response of every answered request at the head of the
// FIFO, in the order the requests arrived, stopping at the first request
// still awaiting an answer.
func (e *Engine) flush() error {
	for len(e.inbound) > 0 && e.inbound[0].answered {
		req := e.inbound[0]
		e.inbound = e.inbound[1:]
		if err := e.send(req.response); err != nil {
			return err
		}
	}
	return nil
}

func encodeIdentitiesAnswerBody(entries []IdentityEntry) []byte {
	body := wire.SerializeUint32(uint32(len(entries)))
	for _, ent := range entries {
		blob, comment := ent.Blob, ent.Comment
		if ent.Key != nil {
			blob = ent.Key.Blob()
			if comment == "" {
				comment = ent.Key.Comment()
			}
		}
		body = append(body, wire.SerializeString(blob)...)
		body = append(body, wire.SerializeString(comment)...)
	}
	return body
}

// deriveSignFlags interprets the flags field of a SIGN_REQUEST, which only
// carries meaning for ssh-rsa keys.
func deriveSignFlags(keyType string, flags uint32) SignFlags {
	if keyType != "ssh-rsa" {
		return SignFlags{}
	}
	switch {
	case flags&uint32(SignFlagRSASHA2512) != 0:
		return SignFlags{Hash: "sha512"}
	case flags&uint32(SignFlagRSASHA2256) != 0:
		return SignFlags{Hash: "sha256"}
	default:
		return SignFlags{}
	}
}

package agent

import (
	"fmt"

	"github.com/pactsec/agentwire/pkg/wire"
)

// GetIdentities sends a REQUEST_IDENTITIES message and enqueues cb to run
// against the matching IDENTITIES_ANSWER, or against any error that fails
// the engine before that reply arrives. It returns an error immediately if
// the engine is not in the client role or has already failed.
func (e *Engine) GetIdentities(cb func([]ParsedKey, error)) error {
	if e.role != RoleClient {
		return fmt.Errorf("%w: GetIdentities called on a server-role engine", ErrInvalidArgument)
	}
	if e.failed != nil {
		return e.failed
	}
	if err := e.send(EncodeFrame(RequestIdentities, nil)); err != nil {
		return err
	}
	e.pending = append(e.pending, &identitiesCall{cb: cb})
	return nil
}

// Sign sends a SIGN_REQUEST for key over data and enqueues cb to run
// against the matching SIGN_RESPONSE. opts may be nil, in which case no
// RSA-SHA2 variant is requested.
func (e *Engine) Sign(key ParsedKey, data []byte, opts *SignOptions, cb func([]byte, error)) error {
	if e.role != RoleClient {
		return fmt.Errorf("%w: Sign called on a server-role engine", ErrInvalidArgument)
	}
	if e.failed != nil {
		return e.failed
	}
	var flags uint32
	if opts != nil && key.Type() == "ssh-rsa" {
		switch opts.Hash {
		case "sha256":
			flags |= uint32(SignFlagRSASHA2256)
		case "sha512":
			flags |= uint32(SignFlagRSASHA2512)
		}
	}
	body := append(wire.SerializeString(key.Blob()), wire.SerializeString(data)...)
	body = append(body, wire.SerializeUint32(flags)...)
	if err := e.send(EncodeFrame(SignRequest, body)); err != nil {
		return err
	}
	e.pending = append(e.pending, &signCall{cb: cb})
	return nil
}

// handleClientFrame matches one decoded frame against the FIFO head and
// either delivers a decoded reply or fails the engine.
func (e *Engine) handleClientFrame(f Frame) {
	p := e.popPending()
	if p == nil {
		e.failAll(fmt.Errorf("%w: reply with no outstanding request", ErrUnexpectedMessage))
		return
	}
	if f.Type == Failure {
		p.fail(ErrAgentFailure)
		return
	}

	switch call := p.(type) {
	case *identitiesCall:
		if f.Type != IdentitiesAnswer {
			e.failHead(call, fmt.Errorf("%w: got %v, wanted IDENTITIES_ANSWER", ErrWrongMessageType, f.Type))
			return
		}
		keys, err := decodeIdentitiesAnswer(f.Payload, e.parser)
		if err != nil {
			e.failHead(call, fmt.Errorf("%w: %v", ErrMalformedMessage, err))
			return
		}
		call.succeed(keys)
	case *signCall:
		if f.Type != SignResponse {
			e.failHead(call, fmt.Errorf("%w: got %v, wanted SIGN_RESPONSE", ErrWrongMessageType, f.Type))
			return
		}
		sig, err := decodeSignResponse(f.Payload)
		if err != nil {
			e.failHead(call, err)
			return
		}
		call.succeed(sig)
	}
}

// failHead completes head, already popped from the FIFO, with err, then
// fails the engine and sweeps any requests still behind it in the FIFO
// with the same error.
func (e *Engine) failHead(head pendingRequest, err error) {
	head.fail(err)
	e.failAll(err)
}

// decodeIdentitiesAnswer decodes an IDENTITIES_ANSWER body. A key blob the
// parser rejects, e.g. of an unsupported type, is skipped rather than
// failing the whole decode.
func decodeIdentitiesAnswer(payload []byte, parser KeyParser) ([]ParsedKey, error) {
	cur := wire.NewCursor(payload)
	n, err := cur.ReadUint32()
	if err != nil {
		return nil, err
	}
	keys := make([]ParsedKey, 0, n)
	for i := uint32(0); i < n; i++ {
		blob, err := cur.ReadString()
		if err != nil {
			return nil, err
		}
		comment, err := cur.ReadString()
		if err != nil {
			return nil, err
		}
		key, err := parser.Parse(blob)
		if err != nil {
			continue
		}
		keys = append(keys, identity{key: key, wireComment: string(comment)})
	}
	return keys, nil
}

// decodeSignResponse validates the OpenSSH signature carried by a
// SIGN_RESPONSE, an outer string containing an (algorithm, blob) string
// pair, and returns only the inner blob; the algorithm name is dropped.
func decodeSignResponse(payload []byte) ([]byte, error) {
	cur := wire.NewCursor(payload)
	sig, err := cur.ReadString()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	inner := wire.NewCursor(sig)
	if _, err := inner.ReadString(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	sigBlob, err := inner.ReadString()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return sigBlob, nil
}

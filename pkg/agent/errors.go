package agent

import "errors"

// Sentinel errors for the engine's terminal conditions. Callers should use
// errors.Is against these, since the engine may wrap them with additional
// context.
var (
	// ErrUnexpectedMessage is returned when a reply-shaped frame arrives
	// with no outstanding request (client role), or when the server
	// role is sent a reply-shaped message.
	ErrUnexpectedMessage = errors.New("agent: unexpected message from server")

	// ErrWrongMessageType is returned when a reply's type does not
	// match the FIFO head's expected request type.
	ErrWrongMessageType = errors.New("agent: wrong message type")

	// ErrMalformedMessage is returned on an underrun while decoding a
	// known field of a message body.
	ErrMalformedMessage = errors.New("agent: malformed agent response")

	// ErrMalformedSignature is returned when a SIGN_RESPONSE's outer
	// signature string parses, but the inner (algorithm, blob) pair
	// does not.
	ErrMalformedSignature = errors.New("agent: malformed OpenSSH signature format")

	// ErrAgentFailure is returned when the peer answers with FAILURE.
	ErrAgentFailure = errors.New("agent: agent responded with failure")

	// ErrInvalidArgument indicates API misuse: wrong role, a reply
	// method invoked against a request of the wrong type, or an empty
	// signature passed to SignReply.
	ErrInvalidArgument = errors.New("agent: invalid argument")

	// ErrTransportFailure is delivered to every pending callback when
	// the underlying stream closes, ends, or errors before a reply
	// arrives.
	ErrTransportFailure = errors.New("agent: no reply from server")

	// ErrMissingImplementation is returned by the default BaseAgent
	// method implementations.
	ErrMissingImplementation = errors.New("agent: missing implementation")
)

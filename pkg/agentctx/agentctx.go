// Package agentctx layers a single-use identity cache and a forward-only
// cursor on top of a BaseAgent, so callers that want to try each of an
// agent's identities in turn don't each have to re-fetch and re-track the
// list themselves.
package agentctx

import (
	"sync"

	"github.com/pactsec/agentwire/pkg/agent"
)

// BaseAgent is the capability a Context wraps: something that can enumerate
// identities and sign on behalf of one of them. A client-role
// *agent.Engine satisfies it; so does any user-supplied stand-in.
// pkg/transport.Client does not: its GetIdentities and Sign block and
// return their results instead of taking a callback.
type BaseAgent interface {
	GetIdentities(cb func([]agent.ParsedKey, error)) error
	Sign(key agent.ParsedKey, data []byte, opts *agent.SignOptions, cb func([]byte, error)) error
}

// NoOpAgent is embeddable by a partial BaseAgent implementation: any method
// not overridden fails with ErrMissingImplementation rather than panicking
// on a nil pointer dereference.
type NoOpAgent struct{}

func (NoOpAgent) GetIdentities(cb func([]agent.ParsedKey, error)) error {
	cb(nil, agent.ErrMissingImplementation)
	return nil
}

func (NoOpAgent) Sign(key agent.ParsedKey, data []byte, opts *agent.SignOptions, cb func([]byte, error)) error {
	cb(nil, agent.ErrMissingImplementation)
	return nil
}

// state is where a Context sits in its Fresh -> Loading -> Loaded lifecycle.
type state int

const (
	stateFresh state = iota
	stateLoading
	stateLoaded
)

// Context caches the identity list fetched once from a BaseAgent and
// exposes a forward-only cursor over it. It is safe for concurrent use:
// concurrent Init calls that arrive while a fetch is in flight are queued
// and all delivered the one fetch's result.
type Context struct {
	agent  BaseAgent
	parser agent.KeyParser

	mu      sync.Mutex
	state   state
	waiters []func([]agent.ParsedKey, error)
	keys    []agent.ParsedKey
	cursor  int
}

// New returns a Context wrapping agent. parser re-validates each identity
// the agent returns; identities it rejects are dropped rather than
// surfaced.
func New(a BaseAgent, parser agent.KeyParser) *Context {
	return &Context{agent: a, parser: parser, cursor: -1}
}

// Init fetches the identity list on first call. Concurrent or subsequent
// calls do not trigger another fetch: a call arriving while one is in
// flight is queued and answered with that fetch's result; a call arriving
// after the list is loaded is answered immediately with the cached result.
//
// cb runs synchronously, on the caller's goroutine, in the Loaded case
// rather than being deferred to a later turn; callers relying on Init
// never reentering them should not call Init again from within cb.
func (c *Context) Init(cb func([]agent.ParsedKey, error)) error {
	c.mu.Lock()
	switch c.state {
	case stateLoaded:
		keys := c.keys
		c.mu.Unlock()
		cb(keys, nil)
		return nil
	case stateLoading:
		c.waiters = append(c.waiters, cb)
		c.mu.Unlock()
		return nil
	}
	c.state = stateLoading
	c.waiters = append(c.waiters, cb)
	c.mu.Unlock()

	return c.agent.GetIdentities(func(keys []agent.ParsedKey, err error) {
		c.finishInit(keys, err)
	})
}

func (c *Context) finishInit(keys []agent.ParsedKey, err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil

	if err != nil {
		c.state = stateFresh
		c.mu.Unlock()
		for _, w := range waiters {
			w(nil, err)
		}
		return
	}

	parsed := make([]agent.ParsedKey, 0, len(keys))
	for _, k := range keys {
		if pk, perr := c.parser.Parse(k.Blob()); perr == nil {
			parsed = append(parsed, pk)
		}
	}
	c.keys = parsed
	c.cursor = -1
	c.state = stateLoaded
	c.mu.Unlock()

	for _, w := range waiters {
		w(parsed, nil)
	}
}

// NextKey advances the cursor and returns the key it now points at, or
// (nil, false) if the context isn't loaded or the cursor has passed the
// last identity.
func (c *Context) NextKey() (agent.ParsedKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateLoaded || c.cursor+1 >= len(c.keys) {
		c.cursor = len(c.keys)
		return nil, false
	}
	c.cursor++
	return c.keys[c.cursor], true
}

// CurrentKey returns the key the cursor currently points at, or (nil,
// false) if unloaded or exhausted.
func (c *Context) CurrentKey() (agent.ParsedKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateLoaded || c.cursor < 0 || c.cursor >= len(c.keys) {
		return nil, false
	}
	return c.keys[c.cursor], true
}

// Pos returns the current cursor index, or -1 if exhausted or unloaded.
func (c *Context) Pos() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateLoaded || c.cursor >= len(c.keys) {
		return -1
	}
	return c.cursor
}

// Reset rewinds the cursor to its initial, pre-iteration position.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = -1
}

// Sign forwards directly to the underlying agent.
func (c *Context) Sign(key agent.ParsedKey, data []byte, opts *agent.SignOptions, cb func([]byte, error)) error {
	return c.agent.Sign(key, data, opts, cb)
}

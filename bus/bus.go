// bus.go
package bus

import (
	"context"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path. Any comparable value works;
// strings and ints are the norm.
type Token = any

// Wildcards. "+" matches exactly one level; "#" matches zero or more
// trailing levels and must be last.
const (
	SingleWild = "+"
	MultiWild  = "#"
)

// Topic is a sequence of tokens.
type Topic []Token

// T builds a Topic. It panics on a non-comparable token.
func T(tokens ...Token) Topic {
	for _, tok := range tokens {
		if tok == nil || !reflect.TypeOf(tok).Comparable() {
			panic("bus: topic token must be comparable")
		}
	}
	return Topic(tokens)
}

// Append returns a new topic with tokens added; t is not modified.
func (t Topic) Append(tokens ...Token) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, tokens...)
}

func (t Topic) String() string {
	s := ""
	for i, tok := range t {
		if i > 0 {
			s += "/"
		}
		switch v := tok.(type) {
		case string:
			s += v
		case int:
			s += strconv.Itoa(v)
		default:
			s += "?"
		}
	}
	return s
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// CanReply reports whether the sender asked for a reply.
func (m *Message) CanReply() bool { return len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver never blocks: when the queue is full the oldest message is dropped.
func (s *Subscription) deliver(m *Message) {
	select {
	case s.ch <- m:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- m:
	default:
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

// Subscriptions live on the node of their (possibly wildcard) pattern;
// retained messages live on the node of their concrete topic.
type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok Token, create bool) *node {
	if c, ok := n.children[tok]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[Token]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

// matchSubs collects subscriptions whose pattern matches topic[i:].
func (n *node) matchSubs(topic Topic, i int, out []*Subscription) []*Subscription {
	if h := n.children[MultiWild]; h != nil {
		out = append(out, h.subs...)
	}
	if i == len(topic) {
		return append(out, n.subs...)
	}
	if c := n.children[topic[i]]; c != nil {
		out = c.matchSubs(topic, i+1, out)
	}
	if topic[i] != SingleWild {
		if c := n.children[SingleWild]; c != nil {
			out = c.matchSubs(topic, i+1, out)
		}
	}
	return out
}

// matchRetained collects retained messages whose topic matches pat[i:].
func (n *node) matchRetained(pat Topic, i int, out []*Message) []*Message {
	if i == len(pat) {
		if n.retained != nil {
			out = append(out, n.retained)
		}
		return out
	}
	switch pat[i] {
	case MultiWild:
		return n.allRetained(out)
	case SingleWild:
		for _, c := range n.children {
			out = c.matchRetained(pat, i+1, out)
		}
		return out
	default:
		if c := n.children[pat[i]]; c != nil {
			return c.matchRetained(pat, i+1, out)
		}
		return out
	}
}

func (n *node) allRetained(out []*Message) []*Message {
	if n.retained != nil {
		out = append(out, n.retained)
	}
	for _, c := range n.children {
		out = c.allRetained(out)
	}
	return out
}

func (n *node) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.retained == nil
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu      sync.RWMutex
	root    *node
	qLen    int
	replyID atomic.Uint32
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

// NewMessage builds a message; it is not published.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// addSubscription inserts a subscription into the trie and replays any
// matching retained messages.
func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	for _, m := range b.root.matchRetained(sub.topic, 0, nil) {
		select {
		case sub.ch <- m:
		default:
		}
	}
}

// Publish delivers a message to every matching subscriber. A retained
// message with a nil payload clears the retained slot.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.root.matchSubs(msg.Topic, 0, nil) {
		sub.deliver(msg)
	}

	if !msg.Retained {
		return
	}
	n := b.root
	for _, tok := range msg.Topic {
		n = n.child(tok, msg.Payload != nil)
		if n == nil {
			return
		}
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

// unsubscribe removes a subscription from the trie.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic := sub.topic
	n := b.root
	stack := make([]*node, 0, len(topic))
	for _, t := range topic {
		child := n.child(t, false)
		if child == nil {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		if !parent.children[topic[i]].empty() {
			break
		}
		delete(parent.children, topic[i])
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

func (c *Connection) ID() string { return c.id }

// NewMessage builds a message on the connection's bus.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection and closes its
// channel. Calling it twice is a no-op.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

// -----------------------------------------------------------------------------
// Request–Reply
// -----------------------------------------------------------------------------

// Request assigns msg a private reply topic, subscribes to it and publishes
// msg. The caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	id := c.bus.replyID.Add(1)
	msg.ReplyTo = Topic{"_reply", c.id, int(id)}
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait publishes msg and blocks for the first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply publishes payload on req's reply topic. It is a no-op when the
// requester did not ask for a reply.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if !req.CanReply() {
		return
	}
	c.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

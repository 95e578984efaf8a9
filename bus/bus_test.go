package bus

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

var (
	topicHALConfig = T("config", "hal")
	valuePattern   = T("hal", "capability", "adc", "+", "value")
)

func valueTopic(id int) Topic { return T("hal", "capability", "adc", id, "value") }

func recv(t *testing.T, s *Subscription) *Message {
	t.Helper()
	select {
	case m, ok := <-s.Channel():
		if !ok {
			t.Fatalf("subscription %v closed", s.Topic())
		}
		return m
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("no message on %v", s.Topic())
	}
	return nil
}

func expectNoMessage(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case m := <-s.Channel():
		t.Fatalf("unexpected message on %v: %v", m.Topic, m.Payload)
	case <-time.After(30 * time.Millisecond):
	}
}

// drainPayloads collects n string payloads in arrival order.
func drainPayloads(t *testing.T, s *Subscription, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p, ok := recv(t, s).Payload.(string)
		if !ok {
			t.Fatalf("payload %d is not a string", i)
		}
		out = append(out, p)
	}
	return out
}

func TestConfigRetainedForLateSubscriber(t *testing.T) {
	b := NewBus(4)
	cfgConn := b.NewConnection("config")
	halConn := b.NewConnection("hal")

	cfgConn.Publish(cfgConn.NewMessage(topicHALConfig, "v1", true))
	cfgConn.Publish(cfgConn.NewMessage(topicHALConfig, "v2", true))

	s := halConn.Subscribe(topicHALConfig)
	m := recv(t, s)
	if m.Payload != "v2" || !m.Retained {
		t.Fatalf("got %v retained=%v, want latest retained v2", m.Payload, m.Retained)
	}
	expectNoMessage(t, s)
}

func TestConfigRetainedClearedByNilPayload(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("config")

	c.Publish(c.NewMessage(topicHALConfig, "v1", true))
	c.Publish(c.NewMessage(topicHALConfig, nil, true))

	s := c.Subscribe(topicHALConfig)
	expectNoMessage(t, s)

	// clearing a topic that never held a value is harmless
	c.Publish(c.NewMessage(T("config", "other"), nil, true))
	expectNoMessage(t, s)
}

func TestNonRetainedNotReplayed(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("hal")
	c.Publish(c.NewMessage(valueTopic(0), "sample", false))

	s := c.Subscribe(valuePattern)
	expectNoMessage(t, s)
}

func TestValueWildcardFanOut(t *testing.T) {
	b := NewBus(8)
	hal := b.NewConnection("hal")
	app := b.NewConnection("app")

	all := app.Subscribe(valuePattern)
	one := app.Subscribe(valueTopic(1))

	hal.Publish(hal.NewMessage(valueTopic(0), "a", false))
	hal.Publish(hal.NewMessage(valueTopic(1), "b", false))
	// neither a state topic nor a deeper path matches the value pattern
	hal.Publish(hal.NewMessage(T("hal", "capability", "adc", 0, "state"), "up", false))
	hal.Publish(hal.NewMessage(T("hal", "capability", "adc", 0, "value", "x"), "deep", false))

	if got := drainPayloads(t, all, 2); got[0] != "a" || got[1] != "b" {
		t.Fatalf("pattern subscriber got %v, want [a b]", got)
	}
	expectNoMessage(t, all)

	if m := recv(t, one); m.Payload != "b" {
		t.Fatalf("exact subscriber got %v, want b", m.Payload)
	}
	expectNoMessage(t, one)
}

func TestMultiLevelWildcard(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("mon")
	s := c.Subscribe(T("hal", "#"))

	c.Publish(c.NewMessage(T("hal"), "root", false))
	c.Publish(c.NewMessage(T("hal", "device", "adc0", "state"), "dev", false))
	c.Publish(c.NewMessage(valueTopic(2), "val", false))
	c.Publish(c.NewMessage(topicHALConfig, "cfg", false))

	got := drainPayloads(t, s, 3)
	want := []string{"root", "dev", "val"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	expectNoMessage(t, s)
}

func TestWildcardReplaysRetainedState(t *testing.T) {
	b := NewBus(8)
	hal := b.NewConnection("hal")
	for i, st := range []string{"up", "down", "degraded"} {
		hal.Publish(hal.NewMessage(T("hal", "capability", "adc", i, "state"), st, true))
	}
	hal.Publish(hal.NewMessage(T("hal", "capability", "adc", 1, "state"), nil, true))

	app := b.NewConnection("app")
	s := app.Subscribe(T("hal", "capability", "adc", "+", "state"))
	got := drainPayloads(t, s, 2)
	sort.Strings(got)
	if got[0] != "degraded" || got[1] != "up" {
		t.Fatalf("got %v, want [degraded up]", got)
	}
	expectNoMessage(t, s)

	every := app.Subscribe(T("#"))
	if got := drainPayloads(t, every, 2); len(got) != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestRequestWaitReplyTopic(t *testing.T) {
	b := NewBus(4)
	server := b.NewConnection("hal")
	client := b.NewConnection("cli")

	reqs := server.Subscribe(T("hal", "capability", "adc", "+", "control", "read_now"))
	go func() {
		for m := range reqs.Channel() {
			if len(m.ReplyTo) != 3 || m.ReplyTo[0] != "_reply" || m.ReplyTo[1] != "cli" {
				server.Reply(m, "bad reply topic "+m.ReplyTo.String(), false)
				continue
			}
			server.Reply(m, "ok", false)
		}
	}()
	defer server.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req := client.NewMessage(T("hal", "capability", "adc", 0, "control", "read_now"), nil, false)
	rep, err := client.RequestWait(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Payload != "ok" {
		t.Fatalf("reply = %v", rep.Payload)
	}

	// each request gets its own reply topic
	req2 := client.NewMessage(T("hal", "capability", "adc", 1, "control", "read_now"), nil, false)
	if _, err := client.RequestWait(ctx, req2); err != nil {
		t.Fatal(err)
	}
	if req.ReplyTo.String() == req2.ReplyTo.String() {
		t.Fatalf("reply topics reused: %v", req.ReplyTo)
	}
}

func TestRequestWaitTimesOutWithoutResponder(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("cli")

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	_, err := c.RequestWait(ctx, c.NewMessage(T("hal", "nobody"), nil, false))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestRequestCallerOwnsSubscription(t *testing.T) {
	b := NewBus(4)
	server := b.NewConnection("hal")
	client := b.NewConnection("cli")
	reqs := server.Subscribe(T("config", "hal"))

	sub := client.Request(client.NewMessage(topicHALConfig, "cfg", false))
	m := recv(t, reqs)
	server.Reply(m, "ack1", false)
	server.Reply(m, "ack2", false)

	if got := drainPayloads(t, sub, 2); got[0] != "ack1" || got[1] != "ack2" {
		t.Fatalf("got %v", got)
	}
	sub.Unsubscribe()
	server.Reply(m, "late", false)
	if _, ok := <-sub.Channel(); ok {
		t.Fatal("reply delivered after unsubscribe")
	}
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("app")
	s1 := c.Subscribe(valuePattern)
	s2 := c.Subscribe(T("hal", "#"))
	c.Disconnect()

	for _, s := range []*Subscription{s1, s2} {
		if _, ok := <-s.Channel(); ok {
			t.Fatalf("%v still open", s.Topic())
		}
	}
	c.Publish(c.NewMessage(valueTopic(0), "after", false))
}

func TestTopic_InvalidTokenPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for non-comparable token, got none")
		}
	}()

	// []byte is not comparable, so T should panic
	_ = T([]byte{1, 2, 3})
}

func TestTopic_AppendDoesNotAlias(t *testing.T) {
	base := make(Topic, 2, 8)
	base[0], base[1] = "hal", "capability"
	a := base.Append("adc", 0)
	b := base.Append("adc", 1)
	if a[3] != 0 || b[3] != 1 {
		t.Fatalf("aliased topics: %v %v", a, b)
	}
	if got := a.String(); got != "hal/capability/adc/0" {
		t.Fatalf("String() = %q", got)
	}
}

func TestReply_NoReplyToIsNoop(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(Topic{"#"})

	req := b.NewMessage(Topic{"x"}, nil, false)
	if req.CanReply() {
		t.Fatal("fresh message should not accept replies")
	}
	c.Reply(req, "ignored", false)
	expectNoMessage(t, s)
}

func TestUnsubscribe_Twice(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(Topic{"a"})
	c.Unsubscribe(s)
	c.Unsubscribe(s)

	if _, ok := <-s.Channel(); ok {
		t.Fatal("channel should be closed")
	}
	c.Publish(b.NewMessage(Topic{"a"}, "late", false))
}

func TestPublish_FullQueueDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(Topic{"q"})

	for _, p := range []string{"1", "2", "3"} {
		c.Publish(b.NewMessage(Topic{"q"}, p, false))
	}
	got := drainPayloads(t, s, 2)
	if got[0] != "2" || got[1] != "3" {
		t.Fatalf("got %v, want [2 3]", got)
	}
}

package heartbeat

import (
	"context"
	"time"

	"adcdevice-go/bus"
	"adcdevice-go/types"
	"adcdevice-go/x/mathx"
	"adcdevice-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicHeartbeat       = bus.Topic{"heartbeat"}
)

const (
	defaultInterval = time.Second
	minIntervalMS   = 100
	maxIntervalMS   = 3_600_000
)

type Service struct {
	start time.Time
	seq   uint32
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.seq++
			conn.Publish(conn.NewMessage(topicHeartbeat, types.Heartbeat{
				Seq:      s.seq,
				UptimeMs: time.Since(s.start).Milliseconds(),
				TS:       timex.NowMs(),
			}, false))
		case msg := <-cfgSub.Channel():
			if iv, ok := intervalMS(msg.Payload); ok {
				tick.Reset(time.Duration(mathx.Clamp(iv, minIntervalMS, maxIntervalMS)) * time.Millisecond)
			}
		}
	}
}

// intervalMS reads {"interval_ms": n} from a decoded JSON object.
func intervalMS(p any) (int, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := m["interval_ms"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Start publishes a heartbeat on the bus until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.start = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}

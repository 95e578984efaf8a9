// services/hal/hal.go
package hal

import (
	"context"
	"encoding/json"
	"time"

	"adcdevice-go/bus"
	"adcdevice-go/errcode"
	"adcdevice-go/types"
	"adcdevice-go/x/mathx"
	"adcdevice-go/x/timex"
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run serves the HAL on conn until ctx is cancelled. Devices are created from
// the retained config/hal message; each I²C bus gets one measurement worker.
func Run(ctx context.Context, conn *bus.Connection, i2cFactory I2CBusFactory) {
	newService(conn, i2cFactory).loop(ctx)
}

func newService(conn *bus.Connection, i2cFactory I2CBusFactory) *service {
	return &service{
		conn:        conn,
		i2cFactory:  i2cFactory,
		workers:     map[string]MeasurementWorker{},
		stopWorker:  map[string]context.CancelFunc{},
		devices:     map[string]devEntry{},
		capToDev:    map[capKey]string{},
		nextCapID:   map[string]int{},
		devPeriodMS: map[string]int{},
		devNextDue:  map[string]time.Time{},
		results:     make(chan Result, 32),
	}
}

// -----------------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------------

type devEntry struct {
	adaptor Adaptor
	caps    map[string]int // kind -> numeric capability id
	busID   string
}

type capKey struct {
	kind string
	id   int
}

type service struct {
	conn       *bus.Connection
	i2cFactory I2CBusFactory

	workers    map[string]MeasurementWorker // by bus id
	stopWorker map[string]context.CancelFunc
	devices    map[string]devEntry

	capToDev  map[capKey]string
	nextCapID map[string]int

	devPeriodMS map[string]int
	devNextDue  map[string]time.Time

	timer *time.Timer

	// Results fan-in
	results chan Result
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "hal"})
	ctrlSub := s.conn.Subscribe(bus.Topic{"hal", "capability", "+", "+", "control", "+"})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	s.timer = time.NewTimer(time.Hour)
	defer s.timer.Stop()

	for {
		if next := s.earliestDevDue(); next.IsZero() {
			resetTimer(s.timer, time.Hour)
		} else {
			resetTimer(s.timer, time.Until(next))
		}

		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg HALConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if failed := s.applyConfig(ctx, cfg); failed > 0 {
				s.publishState("ready", "configured_with_errors", nil)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-s.timer.C:
			now := time.Now()
			for devID, due := range s.devNextDue {
				if !now.Before(due) {
					s.submitMeasure(devID, false)
					s.bumpDevNext(devID, now)
				}
			}

		case r := <-s.results:
			s.handleResult(r)
		}
	}
}

// hal/capability/<kind>/<id:int>/control/<method>
func (s *service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 6 {
		return
	}
	kind, _ := msg.Topic[2].(string)
	idNum, ok := asInt(msg.Topic[3])
	if !ok || kind == "" {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	devID, ok := s.capToDev[capKey{kind: kind, id: idNum}]
	if !ok {
		s.replyErr(msg, errcode.UnknownCapability)
		return
	}
	method, _ := msg.Topic[5].(string)

	switch method {
	case "read_now":
		if s.submitMeasure(devID, true) {
			s.bumpDevNext(devID, time.Now())
			s.replyOK(msg, nil)
		} else {
			s.replyErr(msg, errcode.Busy)
		}
	case "set_period":
		var p types.SetPeriod
		if err := decodeJSON(msg.Payload, &p); err != nil || p.PeriodMS <= 0 {
			s.replyErr(msg, errcode.InvalidParams)
			return
		}
		s.devPeriodMS[devID] = mathx.Clamp(p.PeriodMS, minPeriodMS, maxPeriodMS)
		s.bumpDevNext(devID, time.Now())
		s.replyOK(msg, map[string]any{"period_ms": s.devPeriodMS[devID]})
	default:
		ent := s.devices[devID]
		res, err := ent.adaptor.Control(kind, method, msg.Payload)
		if err != nil {
			if err == ErrUnsupported {
				s.replyErr(msg, errcode.Unsupported)
			} else {
				s.replyErr(msg, errcode.Of(err))
			}
			return
		}
		s.replyOK(msg, map[string]any{"result": res})
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// applyConfig creates new devices, leaves existing ones untouched and removes
// devices absent from cfg. It returns the number of devices that failed to
// build.
func (s *service) applyConfig(ctx context.Context, cfg HALConfig) int {
	seen := map[string]struct{}{}
	failed := 0

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		seen[d.ID] = struct{}{}

		if _, exists := s.devices[d.ID]; exists {
			continue
		}

		b, ok := findBuilder(d.Type)
		if !ok {
			s.publishDeviceErr(d.ID, errcode.Unsupported)
			failed++
			continue
		}
		out, err := b.Build(BuildInput{
			Ctx:        ctx,
			Buses:      s.i2cFactory,
			DeviceID:   d.ID,
			Type:       d.Type,
			ParamsJSON: d.Params,
			BusRef:     d.BusRef,
		})
		if err != nil {
			s.publishDeviceErr(d.ID, err)
			failed++
			continue
		}

		// Ensure a worker for this bus.
		if out.BusID != "" {
			if _, ok := s.workers[out.BusID]; !ok {
				wctx, cancel := context.WithCancel(ctx)
				w := NewMeasurementWorker(WorkerConfig{}, s.results)
				w.Start(wctx)
				s.workers[out.BusID] = w
				s.stopWorker[out.BusID] = cancel
			}
		}

		entry := devEntry{adaptor: out.Adaptor, busID: out.BusID, caps: map[string]int{}}
		now := timex.NowMs()
		for _, ci := range out.Adaptor.Capabilities() {
			id := s.nextCapID[ci.Kind]
			s.nextCapID[ci.Kind]++

			entry.caps[ci.Kind] = id
			s.capToDev[capKey{kind: ci.Kind, id: id}] = d.ID

			s.pubRet(capTopic(ci.Kind, id, "info"), ci.Info)
			s.pubRet(capTopic(ci.Kind, id, "state"), types.CapabilityStatus{Link: types.LinkUp, TS: now})
		}
		s.devices[d.ID] = entry
		s.pubRet(bus.Topic{"hal", "device", d.ID, "state"}, nil)

		if out.SampleEvery > 0 {
			s.devPeriodMS[d.ID] = int(out.SampleEvery / time.Millisecond)
			s.devNextDue[d.ID] = time.Now().Add(minPeriodMS * time.Millisecond)
		}
	}

	// Tidy-up: remove devices not in config
	for devID, ent := range s.devices {
		if _, ok := seen[devID]; ok {
			continue
		}
		now := timex.NowMs()
		for kind, id := range ent.caps {
			s.pubRet(capTopic(kind, id, "info"), nil)
			s.pubRet(capTopic(kind, id, "state"), types.CapabilityStatus{Link: types.LinkDown, TS: now})
			delete(s.capToDev, capKey{kind: kind, id: id})
		}
		if w := s.workers[ent.busID]; w != nil {
			w.Remove(devID)
		}
		delete(s.devices, devID)
		delete(s.devPeriodMS, devID)
		delete(s.devNextDue, devID)
	}

	// Stop workers whose bus no longer carries a device.
	for busID, stop := range s.stopWorker {
		if !s.busInUse(busID) {
			stop()
			delete(s.stopWorker, busID)
			delete(s.workers, busID)
		}
	}

	return failed
}

func (s *service) busInUse(busID string) bool {
	for _, ent := range s.devices {
		if ent.busID == busID {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Results and helpers
// -----------------------------------------------------------------------------

func (s *service) submitMeasure(devID string, prio bool) bool {
	ent, ok := s.devices[devID]
	if !ok {
		return false
	}
	w := s.workers[ent.busID]
	if w == nil {
		return false
	}
	return w.Submit(MeasureReq{ID: devID, Adaptor: ent.adaptor, Prio: prio})
}

func (s *service) bumpDevNext(devID string, from time.Time) {
	ms, ok := s.devPeriodMS[devID]
	if !ok {
		return
	}
	period := time.Duration(mathx.Clamp(ms, minPeriodMS, maxPeriodMS)) * time.Millisecond
	s.devNextDue[devID] = from.Add(period)
}

func (s *service) earliestDevDue() time.Time {
	var min time.Time
	for _, t := range s.devNextDue {
		if !t.IsZero() && (min.IsZero() || t.Before(min)) {
			min = t
		}
	}
	return min
}

func (s *service) handleResult(r Result) {
	ent, ok := s.devices[r.ID]
	if !ok {
		return
	}
	now := timex.NowMs()

	if r.Err != nil {
		for kind, id := range ent.caps {
			s.pubRet(capTopic(kind, id, "state"),
				types.CapabilityStatus{Link: types.LinkDegraded, Error: string(errcode.Of(r.Err)), TS: now})
		}
		return
	}
	for _, rd := range r.Sample {
		id, ok := ent.caps[rd.Kind]
		if !ok {
			continue
		}
		s.conn.Publish(s.conn.NewMessage(capTopic(rd.Kind, id, "value"), rd.Payload, false))
		s.pubRet(capTopic(rd.Kind, id, "state"), types.CapabilityStatus{Link: types.LinkUp, TS: now})
	}
}

func (s *service) publishState(level, status string, err error) {
	st := types.HALState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{"hal", "state"}, st, true))
}

func (s *service) publishDeviceErr(devID string, err error) {
	s.pubRet(bus.Topic{"hal", "device", devID, "state"},
		types.CapabilityStatus{Link: types.LinkDown, Error: string(errcode.Of(err)), TS: timex.NowMs()})
}

func (s *service) replyOK(req *bus.Message, extra map[string]any) {
	if !req.CanReply() {
		return
	}
	m := map[string]any{"ok": true}
	for k, v := range extra {
		m[k] = v
	}
	s.conn.Reply(req, m, false)
}

func (s *service) replyErr(req *bus.Message, c errcode.Code) {
	if !req.CanReply() {
		return
	}
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: string(c)}, false)
}

func capTopic(kind string, id int, rest ...bus.Token) bus.Topic {
	return bus.Topic{"hal", "capability", kind, id}.Append(rest...)
}

func (s *service) pubRet(t bus.Topic, p any) {
	s.conn.Publish(s.conn.NewMessage(t, p, true))
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case *T:
		*dst = *v
		return nil
	case T:
		*dst = v
		return nil
	default:
		// Accept maps, structs, numbers… by marshaling then decoding to T.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n := 0
		if v == "" {
			return 0, false
		}
		for i := 0; i < len(v); i++ {
			if v[i] < '0' || v[i] > '9' {
				return 0, false
			}
			n = n*10 + int(v[i]-'0')
		}
		return n, true
	default:
		return 0, false
	}
}

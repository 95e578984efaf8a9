package hal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errCollect = errors.New("bus_read_failed")

// fakeAdaptor implements the generic Adaptor interface.
// Its first failCollects Collect calls return errCollect.
type fakeAdaptor struct {
	id           string
	after        time.Duration
	failCollects int
	triggerErr   error
	inFlight     *atomic.Int32 // shared between adaptors on one bus
	maxInFlight  *atomic.Int32

	mu       sync.Mutex
	triggers int
	collects int
}

func (f *fakeAdaptor) ID() string              { return f.id }
func (f *fakeAdaptor) Capabilities() []CapInfo { return nil }
func (f *fakeAdaptor) Trigger(ctx context.Context) (time.Duration, error) {
	f.mu.Lock()
	f.triggers++
	f.mu.Unlock()
	if f.triggerErr != nil {
		return 0, f.triggerErr
	}
	if f.inFlight != nil {
		n := f.inFlight.Add(1)
		for {
			m := f.maxInFlight.Load()
			if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
	}
	return f.after, nil
}
func (f *fakeAdaptor) Collect(ctx context.Context) (Sample, error) {
	f.mu.Lock()
	f.collects++
	n := f.collects
	f.mu.Unlock()
	if f.inFlight != nil {
		f.inFlight.Add(-1)
	}
	if n <= f.failCollects {
		return nil, errCollect
	}
	ts := time.Now().UnixMilli()
	return Sample{
		{Kind: "adc", Payload: map[string]any{"raw": 1234, "ts_ms": ts}, TsMs: ts},
	}, nil
}
func (f *fakeAdaptor) Control(kind, method string, payload any) (any, error) {
	return nil, ErrUnsupported
}
func (f *fakeAdaptor) triggerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggers
}
func (f *fakeAdaptor) collectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collects
}

func startWorker(t *testing.T, cfg WorkerConfig) (*measureWorker, chan Result) {
	t.Helper()
	sink := make(chan Result, 8)
	w := NewWorker(cfg, sink)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w.Start(ctx)
	return w, sink
}

func TestWorker_Success(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{
		TriggerTimeout: 50 * time.Millisecond,
		CollectTimeout: 50 * time.Millisecond,
	})

	ad := &fakeAdaptor{id: "dev1", after: 2 * time.Millisecond}
	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
		m := findReadingPayload(t, r.Sample, "adc")
		if gi(m, "raw") != 1234 {
			t.Fatalf("bad data: %v", m)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
	if n := ad.collectCount(); n != 1 {
		t.Fatalf("collected %d times, want 1", n)
	}
}

func TestWorker_CollectErrorReportedOnce(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})

	ad := &fakeAdaptor{id: "dev2", after: time.Millisecond, failCollects: 10}
	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if !errors.Is(r.Err, errCollect) {
			t.Fatalf("err = %v, want %v", r.Err, errCollect)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for failure result")
	}
	select {
	case r := <-results:
		t.Fatalf("unexpected extra result: %+v", r)
	case <-time.After(30 * time.Millisecond):
	}
	if n := ad.collectCount(); n != 1 {
		t.Fatalf("collected %d times, want 1", n)
	}
}

func TestWorker_TriggerErrorReported(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})
	boom := errors.New("bus_write_failed")
	bad := &fakeAdaptor{id: "bad", triggerErr: boom}
	good := &fakeAdaptor{id: "good", after: time.Millisecond}

	w.Submit(MeasureReq{ID: bad.id, Adaptor: bad})
	w.Submit(MeasureReq{ID: good.id, Adaptor: good})

	got := map[string]error{}
	for len(got) < 2 {
		select {
		case r := <-results:
			got[r.ID] = r.Err
		case <-time.After(300 * time.Millisecond):
			t.Fatalf("timeout; got %v", got)
		}
	}
	if !errors.Is(got["bad"], boom) || got["good"] != nil {
		t.Fatalf("results: %v", got)
	}
}

func TestWorker_CoalescingAndReadNowDesire(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})

	// Fails its first collect, succeeds afterwards.
	ad := &fakeAdaptor{id: "dev3", after: 5 * time.Millisecond, failCollects: 1}

	if ok := w.Submit(MeasureReq{ID: ad.id, Adaptor: ad}); !ok {
		t.Fatal("submit failed")
	}
	// While pending, submit a priority request to set the desire flag.
	_ = w.Submit(MeasureReq{ID: ad.id, Adaptor: ad, Prio: true})

	select {
	case r := <-results:
		if r.Err == nil {
			t.Fatal("expected error on first cycle")
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for first failure")
	}

	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("unexpected second error: %v", r.Err)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for success after desire re-trigger")
	}
	if n := ad.triggerCount(); n < 2 {
		t.Fatalf("expected at least 2 triggers, got %d", n)
	}
}

func TestWorker_OneConversionInFlight(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})
	var inFlight, maxInFlight atomic.Int32

	var ads []*fakeAdaptor
	for _, id := range []string{"a", "b", "c", "d"} {
		ad := &fakeAdaptor{id: id, after: 3 * time.Millisecond, inFlight: &inFlight, maxInFlight: &maxInFlight}
		ads = append(ads, ad)
		if !w.Submit(MeasureReq{ID: id, Adaptor: ad}) {
			t.Fatal("submit failed")
		}
	}
	for range ads {
		select {
		case r := <-results:
			if r.Err != nil {
				t.Fatalf("%s: %v", r.ID, r.Err)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatal("timeout")
		}
	}
	if m := maxInFlight.Load(); m != 1 {
		t.Fatalf("max conversions in flight = %d, want 1", m)
	}
}

func TestWorker_DuplicateQueuedRequestCoalesced(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})
	slow := &fakeAdaptor{id: "slow", after: 20 * time.Millisecond}
	other := &fakeAdaptor{id: "other", after: time.Millisecond}

	w.Submit(MeasureReq{ID: slow.id, Adaptor: slow})
	w.Submit(MeasureReq{ID: other.id, Adaptor: other})
	w.Submit(MeasureReq{ID: other.id, Adaptor: other})

	for i := 0; i < 2; i++ {
		select {
		case <-results:
		case <-time.After(300 * time.Millisecond):
			t.Fatal("timeout")
		}
	}
	select {
	case r := <-results:
		t.Fatalf("unexpected extra result: %+v", r)
	case <-time.After(40 * time.Millisecond):
	}
	if n := other.triggerCount(); n != 1 {
		t.Fatalf("other triggered %d times", n)
	}
}

func TestWorker_RemoveDropsQueuedRequest(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})
	slow := &fakeAdaptor{id: "slow", after: 30 * time.Millisecond}
	gone := &fakeAdaptor{id: "gone", after: time.Millisecond}

	w.Submit(MeasureReq{ID: slow.id, Adaptor: slow})
	w.Submit(MeasureReq{ID: gone.id, Adaptor: gone})
	time.Sleep(5 * time.Millisecond)
	w.Remove(gone.id)

	select {
	case r := <-results:
		if r.ID != slow.id || r.Err != nil {
			t.Fatalf("result %+v", r)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout")
	}
	select {
	case r := <-results:
		t.Fatalf("result for removed device: %+v", r)
	case <-time.After(30 * time.Millisecond):
	}
	if n := gone.triggerCount(); n != 0 {
		t.Fatalf("removed device triggered %d times", n)
	}
}

func TestWorker_RemoveDiscardsInFlightResult(t *testing.T) {
	w, results := startWorker(t, WorkerConfig{})
	ad := &fakeAdaptor{id: "adc0", after: 20 * time.Millisecond}

	w.Submit(MeasureReq{ID: ad.id, Adaptor: ad, Prio: true})
	time.Sleep(5 * time.Millisecond)
	w.Remove(ad.id)

	select {
	case r := <-results:
		t.Fatalf("result for removed device: %+v", r)
	case <-time.After(60 * time.Millisecond):
	}
	if n := ad.collectCount(); n != 1 {
		t.Fatalf("in-flight conversion collected %d times, want 1", n)
	}

	// The id is usable again once re-submitted.
	fresh := &fakeAdaptor{id: "adc0", after: time.Millisecond}
	w.Submit(MeasureReq{ID: fresh.id, Adaptor: fresh})
	select {
	case r := <-results:
		if r.ID != "adc0" || r.Err != nil {
			t.Fatalf("result %+v", r)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for re-added device")
	}
}

// -------- helpers --------

func findReadingPayload(t *testing.T, s Sample, kind string) map[string]any {
	t.Helper()
	for _, r := range s {
		if r.Kind == kind {
			if m, ok := r.Payload.(map[string]any); ok {
				return m
			}
			t.Fatalf("payload for kind %q is not a map: %#v", kind, r.Payload)
		}
	}
	t.Fatalf("reading kind %q not found in sample: %#v", kind, s)
	return nil
}

func gi(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

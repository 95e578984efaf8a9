//go:build rp2040 || rp2350

package main

import (
	"context"
	"runtime"
	"time"

	"adcdevice-go/bus"
	"adcdevice-go/services/config"
	"adcdevice-go/services/hal"
	"adcdevice-go/services/hal/platform"
	"adcdevice-go/services/heartbeat"
	"adcdevice-go/types"
)

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i, tok := range t {
		if i > 0 {
			print("/")
		}
		switch v := tok.(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func main() {
	time.Sleep(3 * time.Second)
	ctx := context.Background()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(4)
	halConn := b.NewConnection("hal")
	uiConn := b.NewConnection("ui")

	println("[main] subscribing to hal state …")
	mon := uiConn.Subscribe(bus.T("hal", "#"))
	values := uiConn.Subscribe(bus.T("hal", "capability", string(types.KindADC), "+", "value"))
	go func() {
		for m := range mon.Channel() {
			if len(m.Topic) == 5 && m.Topic[4] == "value" {
				continue
			}
			printTopicWith("[monitor] <-", m.Topic)
		}
	}()

	println("[main] starting hal.Run …")
	go hal.Run(ctx, halConn, platform.DefaultI2CFactory())

	println("[main] starting config and heartbeat …")
	cfgCtx := context.WithValue(ctx, config.CtxDeviceKey, "pico")
	config.NewConfigService().Start(cfgCtx, b.NewConnection("config"))
	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))
	beats := uiConn.Subscribe(bus.T("heartbeat"))

	time.Sleep(250 * time.Millisecond)

	readNow := bus.T("hal", "capability", string(types.KindADC), 0, "control", "read_now")
	println("[main] sending read_now for adc/0 …")
	if reply, err := uiConn.RequestWait(ctx, uiConn.NewMessage(readNow, nil, false)); err != nil {
		println("[main] read_now error:", err.Error())
	} else {
		printTopicWith("[main] read_now reply on", reply.Topic)
	}

	for {
		select {
		case m := <-values.Channel():
			if v, ok := m.Payload.(types.ADCValue); ok {
				println("[adc]", v.Input, "raw:", v.Raw, "uV:", v.Microvolts)
			}
		case m := <-beats.Channel():
			if beat, ok := m.Payload.(types.Heartbeat); ok {
				println("[heartbeat]", beat.Seq, "uptime ms:", beat.UptimeMs)
			}
			printMem()
		}
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}

package sim_test

import (
	"errors"
	"testing"
	"time"

	"adcdevice-go/drivers/ads1x15"
	"adcdevice-go/drivers/ads1x15/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noDelay(time.Duration) {}

func newPair(t *testing.T, v ads1x15.Variant) (*sim.Device, *ads1x15.Device) {
	t.Helper()
	s := sim.New(ads1x15.AddressGND, v)
	cfg := ads1x15.DefaultConfig(v)
	cfg.Delay = noDelay
	return s, ads1x15.New(s, cfg)
}

func TestCode(t *testing.T) {
	assert.Equal(t, int16(16384), sim.Code(ads1x15.ADS1115, ads1x15.GainOne, 2_048_000))
	assert.Equal(t, int16(1024), sim.Code(ads1x15.ADS1015, ads1x15.GainOne, 2_048_000))
	assert.Equal(t, int16(32767), sim.Code(ads1x15.ADS1115, ads1x15.GainSixteen, 1_000_000))
	assert.Equal(t, int16(-2048), sim.Code(ads1x15.ADS1015, ads1x15.GainSixteen, -1_000_000))
}

func TestReadSingleEnded(t *testing.T) {
	for _, v := range []ads1x15.Variant{ads1x15.ADS1015, ads1x15.ADS1115} {
		s, d := newPair(t, v)
		require.NoError(t, d.SetGain(ads1x15.GainOne))
		s.SetInput(2, 1_024_000)

		got, err := d.ReadSingleEnded(2)
		require.NoError(t, err)
		assert.Equal(t, sim.Code(v, ads1x15.GainOne, 1_024_000), got, v.String())
		assert.Equal(t, int32(1_024_000), d.Microvolts(got), v.String())

		cfg, err := d.ReadConfig()
		require.NoError(t, err)
		assert.True(t, cfg.Start(), "idle device reads OS=1")
		assert.Equal(t, uint8(6), cfg.Mux())
		assert.Equal(t, ads1x15.GainOne, cfg.Gain())
	}
}

func TestReadDifferentialNegative(t *testing.T) {
	s, d := newPair(t, ads1x15.ADS1015)
	require.NoError(t, d.SetGain(ads1x15.GainTwo))
	s.SetInput(0, 0)
	s.SetInput(1, 1_024_000)

	got, err := d.ReadDifferential(ads1x15.Diff01)
	require.NoError(t, err)
	assert.Equal(t, int16(-1024), got)
}

func TestComparatorLatch(t *testing.T) {
	for _, v := range []ads1x15.Variant{ads1x15.ADS1015, ads1x15.ADS1115} {
		s, d := newPair(t, v)
		require.NoError(t, d.SetGain(ads1x15.GainOne))
		require.NoError(t, d.StartComparator(0, 1000))

		var want uint16 = 1000
		if v == ads1x15.ADS1015 {
			want = 16000
		}
		assert.Equal(t, want, s.Register(sim.RegHiThresh), v.String())
		assert.False(t, s.Alert())

		s.SetInput(0, 4_000_000)
		assert.True(t, s.Alert(), v.String())

		// Dropping back below threshold keeps the latch.
		s.SetInput(0, 0)
		assert.True(t, s.Alert(), v.String())

		got, err := d.LastConversion()
		require.NoError(t, err)
		assert.Equal(t, int16(0), got)
		assert.False(t, s.Alert(), "reading the conversion clears the latch")
	}
}

func TestFaultInjection(t *testing.T) {
	s, d := newPair(t, ads1x15.ADS1115)
	nack := errors.New("nack")

	s.FailWrites(nack)
	_, err := d.ReadSingleEnded(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ads1x15.ErrBusWrite)
	assert.ErrorIs(t, err, nack)
	require.Len(t, s.Log(), 1, "no read after failed write")

	s.FailWrites(nil)
	s.ShortReads(true)
	_, err = d.ReadSingleEnded(0)
	assert.ErrorIs(t, err, ads1x15.ErrBusRead)

	s.ShortReads(false)
	s.FailReads(nack)
	_, err = d.ReadConversion()
	assert.ErrorIs(t, err, ads1x15.ErrBusRead)
}

func TestBusRouting(t *testing.T) {
	a := sim.New(ads1x15.AddressGND, ads1x15.ADS1115)
	b := sim.New(ads1x15.AddressVDD, ads1x15.ADS1015)
	bus := sim.NewBus(a, b)
	a.SetInput(0, 1_000_000)
	b.SetInput(0, 2_000_000)

	da := ads1x15.New(bus, ads1x15.Config{Address: ads1x15.AddressGND, Variant: ads1x15.ADS1115, Gain: ads1x15.GainOne, Delay: noDelay})
	db := ads1x15.New(bus, ads1x15.Config{Address: ads1x15.AddressVDD, Variant: ads1x15.ADS1015, Gain: ads1x15.GainOne, Delay: noDelay})

	va, err := da.ReadSingleEnded(0)
	require.NoError(t, err)
	vb, err := db.ReadSingleEnded(0)
	require.NoError(t, err)
	assert.Equal(t, int32(1_000_000), da.Microvolts(va))
	assert.Equal(t, int32(2_000_000), db.Microvolts(vb))

	missing := ads1x15.New(bus, ads1x15.Config{Address: ads1x15.AddressSCL, Delay: noDelay})
	_, err = missing.ReadSingleEnded(0)
	assert.ErrorIs(t, err, sim.ErrNoDevice)
	assert.Same(t, a, bus.Device(ads1x15.AddressGND))
}

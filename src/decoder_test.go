package dcc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDecoder() (*Decoder, *fakeClock) {
	var clock = &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	return NewDecoder(clock), clock
}

// pkt builds a packet from hex bytes and appends the error detection byte.
func pkt(t *testing.T, s string) RawPacket {
	t.Helper()

	var p, err = ParseHexPacket(s, true)
	require.NoError(t, err)

	return p
}

func TestDecoder_Reset(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetLocoAddress(3)

	require.Equal(t, CmdMyLocoSpeed, d.Process(pkt(t, "03 4a")))
	require.Equal(t, CmdMyLocoF0F4, d.Process(pkt(t, "03 9f")))
	assert.False(t, d.Loco.Forward)

	assert.Equal(t, CmdReset, d.Process(NewRawPacket(0x00, 0x00, 0x00)))
	assert.Equal(t, "ResetCmd", d.CmdType.String())
	assert.Equal(t, uint8(0), d.Loco.Speed)
	assert.True(t, d.Loco.Forward)
	assert.False(t, d.Loco.EmergencyStop)
	assert.Equal(t, uint8(0), d.Loco.F0F4)
	assert.True(t, d.InServiceMode())
}

func TestDecoder_ChecksumError(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetLocoAddress(3)

	var good = pkt(t, "03 6a")
	var bad = good
	bad.Data[1] ^= 0x04

	assert.Equal(t, CmdIgnore, d.Process(bad))
	assert.Equal(t, IgnoreChecksum, d.Ignored)
	assert.Equal(t, uint64(1), d.Stats().ErrorXOR)
	assert.Equal(t, uint8(0), d.Loco.Speed, "bad packets must not change state")
	assert.Equal(t, uint16(NoAddress), d.Loco.Address)

	assert.Equal(t, CmdMyLocoSpeed, d.Process(good))
}

func TestDecoder_FirstByteRanges(t *testing.T) {
	var d, _ = newTestDecoder()

	var tests = []struct {
		packet string
		cmd    CmdType
		why    IgnoreReason
	}{
		{"ff 00", CmdIgnore, IgnoreIdle},
		{"e8 00", CmdIgnore, IgnoreReserved},
		{"fe 12", CmdIgnore, IgnoreReserved},
		{"05 64", CmdSomeLocoMovesFlag, IgnoreNone},
		{"c3 e8 60", CmdSomeLocoSpeedFlag, IgnoreNone},
		{"81 f8", CmdAnyAccessory, IgnoreNone},
		{"00 3f 00", CmdIgnore, IgnoreUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.packet, func(t *testing.T) {
			assert.Equal(t, tt.cmd, d.Process(pkt(t, tt.packet)))
			assert.Equal(t, tt.why, d.Ignored)
		})
	}
}

func TestDecoder_TooShort(t *testing.T) {
	var d, _ = newTestDecoder()

	assert.Equal(t, CmdIgnore, d.Process(NewRawPacket(0xFF, 0xFF)))
	assert.Equal(t, IgnoreShort, d.Ignored)
}

func TestDecoder_BroadcastStop(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetLocoAddress(3)

	d.Process(pkt(t, "03 65"))
	require.Equal(t, uint8(7), d.Loco.Speed)

	assert.Equal(t, CmdMyEmergencyStop, d.Process(pkt(t, "00 71")))
	assert.True(t, d.Loco.EmergencyStop)
	assert.Equal(t, uint8(0), d.Loco.Speed)

	assert.Equal(t, CmdIgnore, d.Process(pkt(t, "00 71")))
	assert.Equal(t, IgnoreRetransmission, d.Ignored)

	assert.Equal(t, CmdMyLocoSpeed, d.Process(pkt(t, "00 40")))
	assert.False(t, d.Loco.EmergencyStop)
}

func TestDecoder_Input(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetAccessoryAddress(0)

	assert.False(t, d.Input())

	d.Slot().Publish([]byte{0x81, 0xF8, 0x79})

	select {
	case <-d.Ready():
	default:
		t.Fatal("Ready not signalled")
	}

	require.True(t, d.Input())
	assert.Equal(t, CmdMyAccessory, d.CmdType)
	assert.Equal(t, "81 f8 79", d.Packet.String())
	assert.False(t, d.Input())
}

func TestDecoder_ServiceModeConfirm(t *testing.T) {
	var d, clock = newTestDecoder()

	require.Equal(t, CmdReset, d.Process(pkt(t, "00 00")))

	var write = pkt(t, "7c 00 03") /* write CV1 = 3 */

	clock.advance(5 * time.Millisecond)
	assert.Equal(t, CmdIgnore, d.Process(write), "first copy")
	assert.Equal(t, IgnoreUnconfirmed, d.Ignored)

	clock.advance(5 * time.Millisecond)
	require.Equal(t, CmdSm, d.Process(write), "second copy")
	assert.Equal(t, CvWriteByte, d.CV.Operation)
	assert.Equal(t, uint16(1), d.CV.Number)
	assert.Equal(t, uint8(3), d.CV.Value)

	clock.advance(5 * time.Millisecond)
	assert.Equal(t, CmdIgnore, d.Process(write), "third copy")
	assert.True(t, d.InServiceMode())
}

func TestDecoder_ServiceModeIdleKeepsWindowOpen(t *testing.T) {
	var d, clock = newTestDecoder()

	d.Process(pkt(t, "00 00"))

	for range 5 {
		clock.advance(30 * time.Millisecond)
		assert.Equal(t, CmdIgnore, d.Process(pkt(t, "ff 00")))
	}

	clock.advance(30 * time.Millisecond)
	assert.Equal(t, CmdIgnore, d.Process(pkt(t, "00 00")))
	assert.Equal(t, IgnoreServiceMode, d.Ignored, "reset inside the window is not a new reset")
	assert.True(t, d.InServiceMode())
}

func TestDecoder_ServiceModeTimeout(t *testing.T) {
	var d, clock = newTestDecoder()

	d.Process(pkt(t, "00 00"))
	require.True(t, d.InServiceMode())

	clock.advance(DefaultSmTimeout + time.Millisecond)

	var write = pkt(t, "7c 00 03")

	assert.Equal(t, CmdIgnore, d.Process(write))
	assert.Equal(t, IgnoreNotForMe, d.Ignored, "read as a packet for loco 124")
	assert.False(t, d.InServiceMode())

	assert.NotEqual(t, CmdSm, d.Process(write))
}

func TestDecoder_ServiceModeTimeoutConfigurable(t *testing.T) {
	var d, clock = newTestDecoder()
	d.SetSmTimeout(100 * time.Millisecond)

	d.Process(pkt(t, "00 00"))
	clock.advance(60 * time.Millisecond)
	d.Process(pkt(t, "7c 00 03"))
	clock.advance(60 * time.Millisecond)

	assert.Equal(t, CmdSm, d.Process(pkt(t, "7c 00 03")))
}

func TestDecoder_ServiceModeBitManipulation(t *testing.T) {
	var d, _ = newTestDecoder()

	d.Process(pkt(t, "00 00"))

	var p = pkt(t, "78 1c fd") /* CV29, write bit 5 = 1 */
	d.Process(p)
	require.Equal(t, CmdSm, d.Process(p))

	assert.Equal(t, CvBitManipulation, d.CV.Operation)
	assert.Equal(t, uint16(29), d.CV.Number)
	assert.True(t, d.CV.WriteCmd)
	assert.Equal(t, uint8(1), d.CV.BitValue)
	assert.Equal(t, uint8(5), d.CV.BitPosition)
	assert.Equal(t, "CV29 write bit 5 = 1", d.CV.String())
}

func TestDecoder_ServiceModeOtherPackets(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetLocoAddress(3)

	d.Process(pkt(t, "00 00"))

	assert.Equal(t, CmdIgnore, d.Process(pkt(t, "03 6a")))
	assert.Equal(t, IgnoreServiceMode, d.Ignored)
	assert.Equal(t, uint8(0), d.Loco.Speed)

	assert.Equal(t, CmdIgnore, d.Process(pkt(t, "7c 00")))
	assert.Equal(t, IgnoreUnsupported, d.Ignored, "short form is not supported")
}

func TestDecoder_Detach(t *testing.T) {
	var d, _ = newTestDecoder()

	assert.ErrorIs(t, d.Detach(), ErrNotAttached)

	var src = new(IntervalSource)
	require.NoError(t, d.Attach(src, DriverEdgeTiming))
	assert.ErrorIs(t, d.Attach(src, DriverEdgeTiming), ErrAlreadyAttached)
	assert.ErrorIs(t, d.AttachPackets(&fakePacketSource{}), ErrAlreadyAttached)

	require.NoError(t, d.Detach())
	assert.ErrorIs(t, src.Run(), ErrNotAttached)

	assert.ErrorIs(t, d.Attach(src, "bogus"), ErrUnknownDriver)
}

type fakePacketSource struct {
	publish func(b []byte)
	stopped bool
}

func (f *fakePacketSource) Start(publish func(b []byte)) error {
	f.publish = publish

	return nil
}

func (f *fakePacketSource) Stop() error {
	f.stopped = true

	return nil
}

func TestDecoder_AttachPackets(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetLocoAddress(3)

	var src = new(fakePacketSource)
	require.NoError(t, d.AttachPackets(src))

	src.publish([]byte{0x03, 0x6A, 0x69})
	src.publish([]byte{0x03, 0x6B, 0x68})

	require.True(t, d.Input())
	assert.Equal(t, uint8(19), d.Loco.Speed, "only the newest packet survives")
	assert.Equal(t, uint64(1), d.Stats().Overwritten)

	require.NoError(t, d.Detach())
	assert.True(t, src.stopped)
	assert.False(t, d.Input())
}

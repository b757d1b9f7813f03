package dcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessory_Basic(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetAccessoryAddress(0)

	// Lenz, wire MSB 0 and LSB 1: the first decoder, handheld address 1.
	var p = pkt(t, "81 f8")

	require.Equal(t, CmdMyAccessory, d.Process(p))

	var a = d.Accessory
	assert.Equal(t, AccessoryBasic, a.Command)
	assert.Equal(t, uint16(0), a.DecoderAddress)
	assert.Equal(t, uint8(1), a.Turnout)
	assert.Equal(t, uint16(1), a.OutputAddress)
	assert.Equal(t, uint8(0), a.Position)
	assert.Equal(t, uint8(1), a.Device)
	assert.Equal(t, uint8(1), a.Activate)

	assert.Equal(t, CmdIgnore, d.Process(p))
	assert.Equal(t, IgnoreRetransmission, d.Ignored)

	// Deactivate is a new command.
	require.Equal(t, CmdMyAccessory, d.Process(pkt(t, "81 f0")))
	assert.Equal(t, uint8(0), d.Accessory.Activate)
}

func TestAccessory_TurnoutAndPosition(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetAccessoryAddress(0)

	require.Equal(t, CmdMyAccessory, d.Process(pkt(t, "81 ff")))

	var a = d.Accessory
	assert.Equal(t, uint8(4), a.Turnout)
	assert.Equal(t, uint8(1), a.Position)
	assert.Equal(t, uint8(8), a.Device)
	assert.Equal(t, uint16(4), a.OutputAddress)
}

func TestAccessory_Masters(t *testing.T) {
	var tests = []struct {
		master  Master
		packet  string
		address uint16
	}{
		{MasterLenz, "81 f8", 0},
		{MasterLenz, "80 f8", 63},
		{MasterLenz, "85 e8", 68},
		{MasterLenz, "80 e8", 127},
		{MasterRoco, "81 f8", 1},
		{MasterRoco, "80 f8", 0},
		{MasterRoco, "85 e8", 69},
		{MasterOpenDCC, "81 f8", 0},
		{MasterOpenDCC, "80 f8", 511},
		{MasterOpenDCC, "80 e8", 63},
	}

	for _, tt := range tests {
		t.Run(tt.master.String()+" "+tt.packet, func(t *testing.T) {
			var d, _ = newTestDecoder()
			d.SetMaster(tt.master)
			d.SetAccessoryAddress(tt.address)

			assert.Equal(t, CmdMyAccessory, d.Process(pkt(t, tt.packet)))
			assert.Equal(t, tt.address, d.Accessory.DecoderAddress)
			assert.Equal(t, tt.address*4+1, d.Accessory.OutputAddress)
		})
	}
}

func TestAccessory_Foreign(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetAccessoryAddress(10)

	assert.Equal(t, CmdAnyAccessory, d.Process(pkt(t, "81 f8")))
	assert.Equal(t, uint16(0), d.Accessory.DecoderAddress)

	assert.Equal(t, CmdIgnore, d.Process(pkt(t, "81 f8")))
	assert.Equal(t, IgnoreRetransmission, d.Ignored)

	// Same address and device, only activate differs: still known.
	assert.Equal(t, CmdIgnore, d.Process(pkt(t, "81 f0")))

	assert.Equal(t, CmdAnyAccessory, d.Process(pkt(t, "81 f9")), "other device")
	assert.Equal(t, CmdAnyAccessory, d.Process(pkt(t, "82 f9")), "other decoder")
}

func TestAccessory_Broadcast(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetAccessoryAddress(10)

	require.Equal(t, CmdMyAccessory, d.Process(pkt(t, "bf 88")))
	assert.Equal(t, uint16(510), d.Accessory.DecoderAddress)
}

func TestAccessory_Extended(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetAccessoryAddress(0)

	var p = pkt(t, "81 71 05")

	require.Equal(t, CmdMyAccessory, d.Process(p))
	assert.Equal(t, AccessoryExtended, d.Accessory.Command)
	assert.Equal(t, uint8(5), d.Accessory.SignalHead)
	assert.Contains(t, d.Accessory.String(), "aspect 5")

	assert.Equal(t, CmdIgnore, d.Process(p))
	assert.Equal(t, IgnoreRetransmission, d.Ignored)

	require.Equal(t, CmdMyAccessory, d.Process(pkt(t, "81 71 06")))
	assert.Equal(t, uint8(6), d.Accessory.SignalHead)
}

func TestAccessory_NOP(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetAccessoryAddress(0)

	assert.Equal(t, CmdIgnore, d.Process(pkt(t, "81 70")))
	assert.Equal(t, IgnoreUnsupported, d.Ignored)
}

func TestAccessory_OutputAddressing(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetOutputAddressing(true)
	d.SetAccessoryAddress(1)

	assert.Equal(t, CmdMyAccessory, d.Process(pkt(t, "81 f8")))
	assert.Equal(t, CmdAnyAccessory, d.Process(pkt(t, "81 fa")))
	assert.Equal(t, uint16(2), d.Accessory.OutputAddress)
}

func TestAccessory_PoM(t *testing.T) {
	var d, _ = newTestDecoder()
	d.SetAccessoryAddress(0)

	var p = pkt(t, "81 f8 ec 00 07")

	assert.Equal(t, CmdIgnore, d.Process(p))
	assert.Equal(t, IgnoreUnconfirmed, d.Ignored)

	require.Equal(t, CmdMyPom, d.Process(p))
	assert.Equal(t, uint16(1), d.CV.Number)
	assert.Equal(t, uint8(7), d.CV.Value)

	// Six bytes but not CV access.
	assert.Equal(t, CmdIgnore, d.Process(pkt(t, "81 f8 12 00 07")))
	assert.Equal(t, IgnoreUnsupported, d.Ignored)
}

func TestParseMaster(t *testing.T) {
	for _, m := range []Master{MasterRoco, MasterLenz, MasterOpenDCC} {
		var got, err = ParseMaster(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	var m, err = ParseMaster("NMRA")
	require.NoError(t, err)
	assert.Equal(t, MasterOpenDCC, m)

	_, err = ParseMaster("marklin")
	assert.ErrorIs(t, err, ErrUnknownMaster)
}

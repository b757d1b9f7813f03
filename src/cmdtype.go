package dcc

// CmdType is the classification of the last packet taken by Decoder.Input.
type CmdType int

const (
	CmdUnknown CmdType = iota
	CmdIgnore
	CmdReset
	CmdSomeLocoSpeedFlag /* Speed 0 for some other loco. */
	CmdSomeLocoMovesFlag /* Speed above 0 for some other loco. */
	CmdMyLocoSpeed
	CmdMyEmergencyStop
	CmdMyLocoF0F4
	CmdMyLocoF5F8
	CmdMyLocoF9F12
	CmdMyLocoF13F20
	CmdMyLocoF21F28
	CmdMyLocoF29F36
	CmdMyLocoF37F44
	CmdMyLocoF45F52
	CmdMyLocoF53F60
	CmdMyLocoF61F68
	CmdMyBinaryState
	CmdMyBinaryStateReset
	CmdAnyAccessory
	CmdMyAccessory
	CmdMyPom
	CmdSm
)

var cmdNames = [...]string{
	CmdUnknown:            "Unknown",
	CmdIgnore:             "IgnoreCmd",
	CmdReset:              "ResetCmd",
	CmdSomeLocoSpeedFlag:  "SomeLocoSpeedFlag",
	CmdSomeLocoMovesFlag:  "SomeLocoMovesFlag",
	CmdMyLocoSpeed:        "MyLocoSpeedCmd",
	CmdMyEmergencyStop:    "MyEmergencyStopCmd",
	CmdMyLocoF0F4:         "MyLocoF0F4Cmd",
	CmdMyLocoF5F8:         "MyLocoF5F8Cmd",
	CmdMyLocoF9F12:        "MyLocoF9F12Cmd",
	CmdMyLocoF13F20:       "MyLocoF13F20Cmd",
	CmdMyLocoF21F28:       "MyLocoF21F28Cmd",
	CmdMyLocoF29F36:       "MyLocoF29F36Cmd",
	CmdMyLocoF37F44:       "MyLocoF37F44Cmd",
	CmdMyLocoF45F52:       "MyLocoF45F52Cmd",
	CmdMyLocoF53F60:       "MyLocoF53F60Cmd",
	CmdMyLocoF61F68:       "MyLocoF61F68Cmd",
	CmdMyBinaryState:      "MyBinaryStateCmd",
	CmdMyBinaryStateReset: "MyBinaryStateResetCmd",
	CmdAnyAccessory:       "AnyAccessoryCmd",
	CmdMyAccessory:        "MyAccessoryCmd",
	CmdMyPom:              "MyPomCmd",
	CmdSm:                 "SmCmd",
}

func (c CmdType) String() string {
	if c < 0 || int(c) >= len(cmdNames) {
		return "Invalid"
	}

	return cmdNames[c]
}

// IsLoco reports whether c describes our loco.
func (c CmdType) IsLoco() bool {
	return c >= CmdMyLocoSpeed && c <= CmdMyBinaryStateReset
}

// IgnoreReason says why a packet was classified CmdIgnore.
type IgnoreReason int

const (
	IgnoreNone IgnoreReason = iota
	IgnoreChecksum
	IgnoreRetransmission
	IgnoreNotForMe
	IgnoreUnconfirmed /* CV access, first copy. */
	IgnoreReserved
	IgnoreIdle
	IgnoreUnsupported
	IgnoreServiceMode /* Not a service mode packet, in service mode. */
	IgnoreShort
)

var ignoreNames = [...]string{
	IgnoreNone:           "",
	IgnoreChecksum:       "checksum error",
	IgnoreRetransmission: "retransmission",
	IgnoreNotForMe:       "not for me",
	IgnoreUnconfirmed:    "waiting for second copy",
	IgnoreReserved:       "reserved address",
	IgnoreIdle:           "idle",
	IgnoreUnsupported:    "unsupported",
	IgnoreServiceMode:    "service mode",
	IgnoreShort:          "too short",
}

func (r IgnoreReason) String() string {
	if r < 0 || int(r) >= len(ignoreNames) {
		return "invalid"
	}

	return ignoreNames[r]
}

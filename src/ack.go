package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Service mode acknowledgement.
 *
 * Description:	On the programming track the command station cannot
 *		read anything back.  The decoder answers "yes" by
 *		drawing at least 60 mA for 6 ms (RCN-216 section 3),
 *		typically by switching on a resistor or the motor.
 *		Here we raise an output line for that time.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"time"
)

// AckLine is an output that switches the acknowledgement load.  A
// *gpiocdev.Line satisfies it.
type AckLine interface {
	SetValue(value int) error
	Close() error
}

/*------------------------------------------------------------------
 *
 * Name:	SendAck
 *
 * Purpose:	Pulse the acknowledgement line.
 *
 * Description:	Blocks for the pulse duration.  Capture carries on in
 *		its own goroutine meanwhile.  Does nothing if no line
 *		was configured.
 *
 *------------------------------------------------------------------*/

func (d *Decoder) SendAck() error {
	if d.ack == nil {
		return nil
	}

	if err := d.ack.SetValue(1); err != nil {
		return fmt.Errorf("ack on: %w", err)
	}

	time.Sleep(d.ackDuration)

	if err := d.ack.SetValue(0); err != nil {
		return fmt.Errorf("ack off: %w", err)
	}

	return nil
}

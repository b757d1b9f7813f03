//go:build linux

package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	DCC input and acknowledgement output on Linux GPIO.
 *
 * Description:	Uses the GPIO character device.  The kernel timestamps
 *		every edge, so we don't depend on how fast the event
 *		goroutine gets to run.  The DCC signal must of course
 *		be brought to logic level first, usually with an
 *		optocoupler.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const gpioConsumer = "apdcc"

type GPIOEdgeSource struct {
	Chip   string /* e.g. gpiochip0 */
	Offset int
	PullUp bool

	line *gpiocdev.Line
}

func (g *GPIOEdgeSource) Start(h EdgeHandler) error {
	var opts = []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer(gpioConsumer),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			var edge = EdgeFalling
			if evt.Type == gpiocdev.LineEventRisingEdge {
				edge = EdgeRising
			}

			h(edge, evt.Timestamp)
		}),
	}

	if g.PullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}

	var line, err = gpiocdev.RequestLine(g.Chip, g.Offset, opts...)
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", g.Chip, g.Offset, err)
	}

	g.line = line
	logger.Info("GPIO input", "chip", g.Chip, "line", g.Offset)

	return nil
}

func (g *GPIOEdgeSource) Stop() error {
	if g.line == nil {
		return nil
	}

	var err = g.line.Close()
	g.line = nil

	return err
}

// OpenGPIOAckLine requests an output line, initially low, for SendAck.
func OpenGPIOAckLine(chip string, offset int) (AckLine, error) {
	var line, err = gpiocdev.RequestLine(chip, offset, gpiocdev.WithConsumer(gpioConsumer), gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request %s ack line %d: %w", chip, offset, err)
	}

	return line, nil
}

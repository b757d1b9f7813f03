package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Make the monitor output available on a pseudo terminal.
 *
 * Description:	Other programs can open the printed device name like a
 *		serial port and read the event lines, as if a hardware
 *		DCC sniffer were attached.  If nobody reads, lines are
 *		dropped instead of blocking the decoder.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"time"

	"github.com/creack/pty"
)

const ptyWriteTimeout = 100 * time.Millisecond

type PtyWriter struct {
	master *os.File
	slave  *os.File
}

func OpenPty() (*PtyWriter, error) {
	var ptmx, pts, err = pty.Open()
	if err != nil {
		return nil, fmt.Errorf("create pseudo terminal: %w", err)
	}

	logger.Info("event output on pseudo terminal", "device", pts.Name())

	return &PtyWriter{master: ptmx, slave: pts}, nil
}

// Name is the device other programs should open.
func (p *PtyWriter) Name() string {
	return p.slave.Name()
}

func (p *PtyWriter) WriteLine(line string) error {
	p.master.SetWriteDeadline(time.Now().Add(ptyWriteTimeout)) //nolint:errcheck

	var _, err = p.master.WriteString(line + "\r\n")

	return err
}

func (p *PtyWriter) Close() error {
	var err = p.master.Close()
	p.slave.Close() //nolint:errcheck

	return err
}

package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Receive complete packets over a serial port.
 *
 * Description:	Some DCC sniffers do the bit decoding themselves and
 *		send one packet per line, in hexadecimal, error byte
 *		included:
 *
 *			03 64 67
 *			P 03 64 67
 *
 *		An optional leading letter and blank lines are ignored.
 *		These packets go straight into the decoder's slot,
 *		bypassing capture and assembly.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/term"
)

const DefaultSerialBaud = 115200

type SerialPacketSource struct {
	Device string
	Baud   int

	port *term.Term
	wg   sync.WaitGroup
}

func (s *SerialPacketSource) Start(publish func(b []byte)) error {
	var baud = s.Baud
	if baud == 0 {
		baud = DefaultSerialBaud
	}

	var port, err = term.Open(s.Device, term.Speed(baud), term.RawMode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", s.Device, err)
	}

	s.port = port
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		var n, readErr = ReadPacketLines(port, publish)
		logger.Info("serial input ended", "packets", n, "err", readErr)
	}()

	logger.Info("serial input", "device", s.Device, "baud", baud)

	return nil
}

func (s *SerialPacketSource) Stop() error {
	if s.port == nil {
		return nil
	}

	var err = s.port.Close()
	s.wg.Wait()
	s.port = nil

	return err
}

/*------------------------------------------------------------------
 *
 * Name:	ReadPacketLines
 *
 * Purpose:	Parse packet lines until r ends.
 *
 * Returns:	Number of packets published and the read error, if
 *		any other than end of file.
 *
 *------------------------------------------------------------------*/

func ReadPacketLines(r io.Reader, publish func(b []byte)) (int, error) {
	var scanner = bufio.NewScanner(r)
	var count int

	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())
		if len(line) > 0 && (line[0] == 'P' || line[0] == 'p') {
			line = strings.TrimSpace(line[1:])
		}

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var p, err = ParseHexPacket(line, false)
		if err != nil {
			logger.Debug("bad packet line", "err", err)

			continue
		}

		publish(p.Bytes())
		count++
	}

	return count, scanner.Err()
}

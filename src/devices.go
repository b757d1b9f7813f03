//go:build linux

package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	List the devices dccmon could use for input.
 *
 * Description:	GPIO chips, serial ports (for a sniffer) and sound
 *		cards, as udev knows them.  Purely informational, for
 *		"dccmon --list-devices".
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

type DeviceInfo struct {
	Subsystem string
	Devnode   string
	Model     string
}

func (d DeviceInfo) String() string {
	if d.Model == "" {
		return fmt.Sprintf("%-6s %s", d.Subsystem, d.Devnode)
	}

	return fmt.Sprintf("%-6s %-24s %s", d.Subsystem, d.Devnode, d.Model)
}

var listSubsystems = []string{"gpio", "tty", "sound"}

func ListDevices() ([]DeviceInfo, error) {
	var u udev.Udev
	var result []DeviceInfo

	for _, subsystem := range listSubsystems {
		var e = u.NewEnumerate()

		if err := e.AddMatchSubsystem(subsystem); err != nil {
			return nil, fmt.Errorf("udev match %s: %w", subsystem, err)
		}

		if err := e.AddMatchIsInitialized(); err != nil {
			return nil, fmt.Errorf("udev match initialized: %w", err)
		}

		var devices, err = e.Devices()
		if err != nil {
			return nil, fmt.Errorf("udev enumerate %s: %w", subsystem, err)
		}

		for _, dev := range devices {
			var node = dev.Devnode()
			if node == "" {
				continue
			}

			// Only USB serial ports, not the dozens of virtual consoles.
			if subsystem == "tty" && dev.PropertyValue("ID_BUS") == "" {
				continue
			}

			var model = dev.PropertyValue("ID_MODEL")
			if model == "" {
				model = dev.PropertyValue("ID_MODEL_FROM_DATABASE")
			}

			result = append(result, DeviceInfo{Subsystem: subsystem, Devnode: node, Model: model})
		}
	}

	return result, nil
}

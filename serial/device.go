// Package serial opens serial devices such as GPS receivers.
package serial

import (
	"io"

	goserial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// DefaultBaudRate is the rate NMEA 0183 receivers talk at unless configured otherwise.
const DefaultBaudRate = 9600

// Open opens a serial port. It's a variable so tests can swap the device out.
var Open = goserial.Open

// OpenDevice opens the device at devicePath for reading 8N1 at the given baud rate.
func OpenDevice(devicePath string, baudRate uint) (io.ReadWriteCloser, error) {
	if devicePath == "" {
		return nil, errors.New("serial device path is empty")
	}
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	options := goserial.OpenOptions{
		PortName:        devicePath,
		BaudRate:        baudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	device, err := Open(options)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", devicePath)
	}
	return device, nil
}

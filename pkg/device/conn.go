// Package device talks to the arm's controller over a line oriented serial
// protocol and streams programs to it.
package device

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Conn is a line oriented transport to the controller.
type Conn interface {
	WriteLine(line string) error
	// ReadLine returns the next reply without its line terminator.
	ReadLine() (string, error)
	// Flush discards input that has not been read yet.
	Flush() error
	Close() error
}

var ErrProtocolTimeout = errors.New("no reply from device within timeout")

// ConnectionError reports a serial line that could not be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// port is the part of serial.Port the transport uses.
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

type serialConn struct {
	port    port
	pending []byte
	chunk   []byte
}

// OpenSerial opens a serial port in 8N1 mode. A read that sees no data for
// timeout fails with ErrProtocolTimeout.
func OpenSerial(name string, baud int, timeout time.Duration) (Conn, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &ConnectionError{Port: name, Err: err}
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, &ConnectionError{Port: name, Err: err}
	}
	return newSerialConn(p), nil
}

func newSerialConn(p port) *serialConn {
	return &serialConn{port: p, chunk: make([]byte, 256)}
}

// Ports lists the serial ports present on this machine.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func (c *serialConn) WriteLine(line string) error {
	_, err := io.WriteString(c.port, line+"\n")
	return err
}

func (c *serialConn) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			line := string(bytes.TrimRight(c.pending[:i], "\r"))
			c.pending = c.pending[i+1:]
			return line, nil
		}
		n, err := c.port.Read(c.chunk)
		c.pending = append(c.pending, c.chunk[:n]...)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", ErrProtocolTimeout
		}
	}
}

func (c *serialConn) Flush() error {
	c.pending = c.pending[:0]
	return c.port.ResetInputBuffer()
}

func (c *serialConn) Close() error {
	return c.port.Close()
}

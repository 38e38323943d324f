package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/npillmayer/schuko/tracing"

	"plotarm/pkg/cfg"
)

func tracer() tracing.Trace {
	return tracing.Select("plotarm.device")
}

// State of the device's run loop.
type State string

const (
	StateIdle    State = "Idle"
	StateRunning State = "Running"
)

// Status is a snapshot of the run state.
type Status struct {
	State         State
	Paused        bool
	StopRequested bool
	Progress      float64
}

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 30 * time.Second

	// parkCommand moves the arm to its rest position.
	parkCommand = "G0 X160 Y0 Z100 F1000"
)

var (
	ErrBusy         = errors.New("device is running a program")
	ErrInvalidMode  = errors.New("mode must be between 1 and 3")
	ErrInvalidAngle = errors.New("servo angle must be between 0 and 180")
)

// UnreachablePositionError is reported when the controller answers a move
// with E22.
type UnreachablePositionError struct {
	Command string
	Reply   string
}

func (e *UnreachablePositionError) Error() string {
	return fmt.Sprintf("position unreachable: %q (reply %q)", e.Command, e.Reply)
}

// Option configures a Device.
type Option func(*options)

type options struct {
	baud         int
	readTimeout  time.Duration
	pollInterval time.Duration
}

func WithBaud(baud int) Option {
	return func(o *options) { o.baud = baud }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.readTimeout = d }
}

// WithPollInterval sets how often a paused run checks for resume or stop.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

func newOptions(opts []Option) options {
	o := options{
		baud:         DefaultBaud,
		readTimeout:  DefaultReadTimeout,
		pollInterval: cfg.PausePollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Device is a connected arm. Ad-hoc commands fail with ErrBusy while a
// program runs.
type Device struct {
	conn         Conn
	pollInterval time.Duration

	// io serialises request/reply exchanges on conn.
	io sync.Mutex

	mu            sync.Mutex
	state         State
	paused        bool
	stopRequested bool
	progress      float64
	result        chan Result
	finished      chan struct{}
}

// Connect opens the serial port and parks the arm.
func Connect(port string, opts ...Option) (*Device, error) {
	o := newOptions(opts)
	conn, err := OpenSerial(port, o.baud, o.readTimeout)
	if err != nil {
		return nil, err
	}
	d := New(conn, opts...)
	if err := d.Park(); err != nil {
		conn.Close()
		return nil, &ConnectionError{Port: port, Err: err}
	}
	tracer().Infof("connected to %s at %d baud", port, o.baud)
	return d, nil
}

// New wraps an open transport.
func New(conn Conn, opts ...Option) *Device {
	o := newOptions(opts)
	return &Device{
		conn:         conn,
		pollInterval: o.pollInterval,
		state:        StateIdle,
	}
}

// Close stops a running program and waits for it, parks the arm and closes
// the transport.
func (d *Device) Close() error {
	d.mu.Lock()
	running := d.state == StateRunning
	finished := d.finished
	if running {
		d.stopRequested = true
		d.paused = false
	}
	d.mu.Unlock()

	var parkErr error
	if running {
		// A stopped run parks on its way out.
		<-finished
	} else {
		parkErr = d.Park()
	}
	if err := d.conn.Close(); err != nil {
		return err
	}
	return parkErr
}

// exchange sends one line and returns the trimmed reply.
func (d *Device) exchange(line string) (string, error) {
	if err := d.conn.Flush(); err != nil {
		return "", err
	}
	if err := d.conn.WriteLine(line); err != nil {
		return "", err
	}
	reply, err := d.conn.ReadLine()
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	tracer().Debugf("%s -> %s", line, reply)
	return reply, nil
}

// exec runs an ad-hoc command.
func (d *Device) exec(line string) (string, error) {
	d.mu.Lock()
	running := d.state == StateRunning
	d.mu.Unlock()
	if running {
		return "", ErrBusy
	}
	d.io.Lock()
	defer d.io.Unlock()
	return d.exchange(line)
}

func (d *Device) query(line string) (string, error) {
	reply, err := d.exec(line)
	if err != nil {
		return "", err
	}
	if len(reply) < 3 {
		return "", nil
	}
	return reply[3:], nil
}

// Command sends a raw line and returns the reply.
func (d *Device) Command(line string) (string, error) {
	return d.exec(line)
}

// Park moves the arm to its rest position.
func (d *Device) Park() error {
	_, err := d.exec(parkCommand)
	return err
}

// Engage powers the motors.
func (d *Device) Engage() error {
	_, err := d.exec("M17")
	return err
}

// Disengage releases the motors.
func (d *Device) Disengage() error {
	_, err := d.exec("M2019")
	return err
}

func (d *Device) DeviceName() (string, error) {
	return d.query("P2201")
}

func (d *Device) HardwareVersion() (string, error) {
	return d.query("P2202")
}

func (d *Device) SoftwareVersion() (string, error) {
	return d.query("P2203")
}

func (d *Device) APIVersion() (string, error) {
	return d.query("P2204")
}

// Mode returns the controller's work mode.
func (d *Device) Mode() (int, error) {
	reply, err := d.exec("P2400")
	if err != nil {
		return 0, err
	}
	if len(reply) < 5 {
		return 0, fmt.Errorf("unexpected mode reply %q", reply)
	}
	mode, err := strconv.Atoi(reply[4:5])
	if err != nil {
		return 0, fmt.Errorf("unexpected mode reply %q", reply)
	}
	return mode, nil
}

// SetMode selects the work mode, 1 to 3.
func (d *Device) SetMode(mode int) error {
	if mode < 1 || mode > 3 {
		return fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	_, err := d.exec(fmt.Sprintf("M2400 S%d", mode))
	return err
}

// SetServo turns the wrist servo to angle degrees.
func (d *Device) SetServo(angle float64) error {
	if angle < 0 || angle > 180 {
		return fmt.Errorf("%w: %g", ErrInvalidAngle, angle)
	}
	_, err := d.exec(fmt.Sprintf("G2202 N3 V%0.2f", angle))
	return err
}

// Status returns a snapshot of the run state.
func (d *Device) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		State:         d.state,
		Paused:        d.paused,
		StopRequested: d.stopRequested,
		Progress:      d.progress,
	}
}

// Progress is the share of the current or last program sent, 0 to 100.
func (d *Device) Progress() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress
}

package device_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotarm/pkg/device"
	"plotarm/pkg/gcode"
)

const park = "G0 X160 Y0 Z100 F1000"

// fakeConn answers every line with the reply chosen by respond, "ok" when
// respond is nil or returns an empty reply.
type fakeConn struct {
	mu      sync.Mutex
	written []string
	last    string
	closed  bool
	respond func(line string) (string, error)
}

func (c *fakeConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, line)
	c.last = line
	return nil
}

func (c *fakeConn) ReadLine() (string, error) {
	c.mu.Lock()
	line, respond := c.last, c.respond
	c.mu.Unlock()
	if respond != nil {
		reply, err := respond(line)
		if err != nil || reply != "" {
			return reply, err
		}
	}
	return "ok", nil
}

func (c *fakeConn) Flush() error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

func program() *gcode.Program {
	commands := []gcode.Command{
		{Code: gcode.CodeBurn, X: 150, Y: 0, Z: 81.5, F: 100},
		{Code: gcode.CodeBurn, X: 160, Y: 0, Z: 81.5, F: 100},
		{Code: gcode.CodeMove, X: 170, Y: 5, Z: 81.5, F: 1000},
	}
	return &gcode.Program{Commands: commands, Count: len(commands)}
}

func wait(t *testing.T, ch <-chan device.Result) device.Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
	return device.Result{}
}

func TestRunCompletes(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	conn := &fakeConn{}
	d := device.New(conn, device.WithPollInterval(time.Millisecond))
	r := wait(t, d.Start(program()))

	assert.Equal(t, device.Completed, r.Outcome)
	assert.NoError(t, r.Err)
	assert.Equal(t, 100.0, r.Progress)
	assert.Equal(t, []string{
		"G1 X150.00 Y0.00 Z81.50 F100.00",
		"G1 X160.00 Y0.00 Z81.50 F100.00",
		"G0 X170.00 Y5.00 Z81.50 F1000.00",
		park,
	}, conn.lines())

	status := d.Status()
	assert.Equal(t, device.StateIdle, status.State)
	assert.True(t, status.StopRequested)
}

func TestRunStopAfterFirstCommand(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	var d *device.Device
	conn := &fakeConn{}
	conn.respond = func(line string) (string, error) {
		if line == "G1 X150.00 Y0.00 Z81.50 F100.00" {
			d.Stop()
		}
		return "", nil
	}
	d = device.New(conn, device.WithPollInterval(time.Millisecond))
	r := wait(t, d.Start(program()))

	assert.Equal(t, device.Stopped, r.Outcome)
	assert.InDelta(t, 100.0/3, r.Progress, 1e-9)
	assert.InDelta(t, 100.0/3, d.Progress(), 1e-9)
	lines := conn.lines()
	require.Len(t, lines, 2)
	assert.Equal(t, park, lines[len(lines)-1])
	assert.Equal(t, device.StateIdle, d.Status().State)
}

func TestRunAbortsOnUnreachablePosition(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	conn := &fakeConn{}
	conn.respond = func(line string) (string, error) {
		if line == "G1 X160.00 Y0.00 Z81.50 F100.00" {
			return "$2 E22", nil
		}
		return "", nil
	}
	d := device.New(conn, device.WithPollInterval(time.Millisecond))

	calls := make(chan device.Result, 2)
	d.StartFunc(program(), func(r device.Result) { calls <- r })
	r := wait(t, calls)

	assert.Equal(t, device.Aborted, r.Outcome)
	var unreachable *device.UnreachablePositionError
	require.True(t, errors.As(r.Err, &unreachable))
	assert.Equal(t, "G1 X160.00 Y0.00 Z81.50 F100.00", unreachable.Command)
	assert.InDelta(t, 100.0/3, r.Progress, 1e-9)
	assert.Equal(t, []string{
		"G1 X150.00 Y0.00 Z81.50 F100.00",
		"G1 X160.00 Y0.00 Z81.50 F100.00",
		park,
	}, conn.lines())

	select {
	case extra := <-calls:
		t.Errorf("onDone called twice, second result %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunAbortsOnTimeout(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	conn := &fakeConn{}
	conn.respond = func(line string) (string, error) {
		if line == "G1 X160.00 Y0.00 Z81.50 F100.00" {
			return "", device.ErrProtocolTimeout
		}
		return "", nil
	}
	d := device.New(conn)
	r := wait(t, d.Start(program()))

	assert.Equal(t, device.Aborted, r.Outcome)
	assert.True(t, errors.Is(r.Err, device.ErrProtocolTimeout))
	assert.InDelta(t, 100.0/3, r.Progress, 1e-9)
	assert.Equal(t, []string{
		"G1 X150.00 Y0.00 Z81.50 F100.00",
		"G1 X160.00 Y0.00 Z81.50 F100.00",
		park,
	}, conn.lines())
	assert.Equal(t, device.StateIdle, d.Status().State)
}

func TestRunAbortKeepsErrorWhenParkFails(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	conn := &fakeConn{}
	conn.respond = func(line string) (string, error) {
		if line == "G1 X150.00 Y0.00 Z81.50 F100.00" || line == park {
			return "", device.ErrProtocolTimeout
		}
		return "", nil
	}
	d := device.New(conn)
	r := wait(t, d.Start(program()))

	assert.Equal(t, device.Aborted, r.Outcome)
	assert.EqualError(t, r.Err, "command 0: "+device.ErrProtocolTimeout.Error())
	assert.Equal(t, []string{"G1 X150.00 Y0.00 Z81.50 F100.00", park}, conn.lines())
}

func TestRunPauseAndResume(t *testing.T) {
	teardown := gotestingadapter.RedirectTracing(t)
	defer teardown()

	var d *device.Device
	held := make(chan struct{})
	conn := &fakeConn{}
	conn.respond = func(line string) (string, error) {
		switch line {
		case "G1 X150.00 Y0.00 Z81.50 F100.00":
			d.Pause()
		case "G0 X150.00 Y0.00 Z81.50 F100.00":
			close(held)
		}
		return "", nil
	}
	d = device.New(conn, device.WithPollInterval(time.Millisecond))
	ch := d.Start(program())
	<-held

	assert.True(t, d.Status().Paused)
	assert.ErrorIs(t, d.Park(), device.ErrBusy)
	assert.ErrorIs(t, d.SetMode(1), device.ErrBusy)
	_, err := d.DeviceName()
	assert.ErrorIs(t, err, device.ErrBusy)

	// Starting again resumes the same run.
	again := d.Start(program())
	assert.True(t, ch == again, "expected the running program's channel")

	r := wait(t, ch)
	assert.Equal(t, device.Completed, r.Outcome)
	assert.Equal(t, []string{
		"G1 X150.00 Y0.00 Z81.50 F100.00",
		"G0 X150.00 Y0.00 Z81.50 F100.00",
		"G1 X160.00 Y0.00 Z81.50 F100.00",
		"G0 X170.00 Y5.00 Z81.50 F1000.00",
		park,
	}, conn.lines())
}

func TestStopWhilePaused(t *testing.T) {
	var d *device.Device
	conn := &fakeConn{}
	conn.respond = func(line string) (string, error) {
		switch line {
		case "G1 X160.00 Y0.00 Z81.50 F100.00":
			d.Pause()
		case "G0 X160.00 Y0.00 Z81.50 F100.00":
			d.Stop()
		}
		return "", nil
	}
	d = device.New(conn, device.WithPollInterval(time.Millisecond))
	r := wait(t, d.Start(program()))

	assert.Equal(t, device.Stopped, r.Outcome)
	assert.InDelta(t, 200.0/3, r.Progress, 1e-9)
	assert.Equal(t, []string{
		"G1 X150.00 Y0.00 Z81.50 F100.00",
		"G1 X160.00 Y0.00 Z81.50 F100.00",
		"G0 X160.00 Y0.00 Z81.50 F100.00",
		park,
	}, conn.lines())
}

func TestIdleControlsAreNoOps(t *testing.T) {
	conn := &fakeConn{}
	d := device.New(conn)
	d.Pause()
	d.Stop()
	d.Resume()
	assert.Equal(t, device.Status{State: device.StateIdle}, d.Status())
	assert.Empty(t, conn.lines())

	r := wait(t, d.Start(&gcode.Program{}))
	assert.Equal(t, device.Aborted, r.Outcome)
	assert.ErrorIs(t, r.Err, gcode.ErrEmptyProgram)
}

func TestProtocol(t *testing.T) {
	conn := &fakeConn{}
	conn.respond = func(line string) (string, error) {
		switch line {
		case "P2201":
			return "ok uArm Swift Pro\r", nil
		case "P2202":
			return "ok 3.2", nil
		case "P2400":
			return "ok V3", nil
		}
		return "", nil
	}
	d := device.New(conn)

	name, err := d.DeviceName()
	require.NoError(t, err)
	assert.Equal(t, "uArm Swift Pro", name)

	hw, err := d.HardwareVersion()
	require.NoError(t, err)
	assert.Equal(t, "3.2", hw)

	mode, err := d.Mode()
	require.NoError(t, err)
	assert.Equal(t, 3, mode)

	require.NoError(t, d.Engage())
	require.NoError(t, d.SetMode(3))
	require.NoError(t, d.SetServo(90))
	require.NoError(t, d.Disengage())
	reply, err := d.Command("G2201 S100")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)

	assert.ErrorIs(t, d.SetMode(0), device.ErrInvalidMode)
	assert.ErrorIs(t, d.SetMode(4), device.ErrInvalidMode)
	assert.ErrorIs(t, d.SetServo(180.5), device.ErrInvalidAngle)
	assert.ErrorIs(t, d.SetServo(-1), device.ErrInvalidAngle)

	assert.Equal(t, []string{
		"P2201", "P2202", "P2400",
		"M17", "M2400 S3", "G2202 N3 V90.00", "M2019", "G2201 S100",
	}, conn.lines())
}

func TestClose(t *testing.T) {
	conn := &fakeConn{}
	d := device.New(conn)
	require.NoError(t, d.Close())
	assert.Equal(t, []string{park}, conn.lines())
	assert.True(t, conn.closed)
}

func TestCloseStopsRun(t *testing.T) {
	var d *device.Device
	conn := &fakeConn{}
	started := make(chan struct{})
	conn.respond = func(line string) (string, error) {
		if line == "G1 X150.00 Y0.00 Z81.50 F100.00" {
			d.Pause()
			close(started)
		}
		return "", nil
	}
	d = device.New(conn, device.WithPollInterval(time.Millisecond))
	ch := d.Start(program())
	<-started

	require.NoError(t, d.Close())
	r := wait(t, ch)
	assert.Equal(t, device.Stopped, r.Outcome)
	lines := conn.lines()
	assert.Equal(t, park, lines[len(lines)-1])
	assert.True(t, conn.closed)
}

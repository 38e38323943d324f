package device

import (
	"fmt"
	"time"

	"plotarm/pkg/gcode"
)

// Outcome tells how a run ended.
type Outcome int

const (
	Completed Outcome = iota
	Stopped
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	}
	return "aborted"
}

// Result is delivered once when a run ends. Err is set for aborted runs.
type Result struct {
	Outcome  Outcome
	Err      error
	Progress float64
}

// Start sends the program in the background. The returned channel receives
// exactly one Result and is then closed. If a program is already running,
// Start resumes it and returns its channel instead.
func (d *Device) Start(p *gcode.Program) <-chan Result {
	ch, _ := d.start(p)
	return ch
}

// StartFunc is Start with a callback, called once when the run ends.
// Resuming a running program keeps the callback given when it started.
func (d *Device) StartFunc(p *gcode.Program, onDone func(Result)) {
	ch, resumed := d.start(p)
	if resumed {
		return
	}
	go func() {
		r := <-ch
		if onDone != nil {
			onDone(r)
		}
	}()
}

func (d *Device) start(p *gcode.Program) (<-chan Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning {
		d.paused = false
		return d.result, true
	}
	result := make(chan Result, 1)
	if p == nil || len(p.Commands) == 0 {
		result <- Result{Outcome: Aborted, Err: gcode.ErrEmptyProgram}
		close(result)
		return result, false
	}
	d.state = StateRunning
	d.paused = false
	d.stopRequested = false
	d.progress = 0
	d.result = result
	d.finished = make(chan struct{})
	go d.run(p.Commands, result, d.finished)
	return result, false
}

// Pause holds the running program before its next command.
func (d *Device) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning {
		d.paused = true
	}
}

func (d *Device) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
}

// Stop ends the running program before its next command and parks the arm.
func (d *Device) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateRunning {
		d.stopRequested = true
	}
}

func (d *Device) run(commands []gcode.Command, result chan<- Result, finished chan<- struct{}) {
	defer close(finished)

	d.io.Lock()
	r := d.send(commands)
	d.io.Unlock()

	d.mu.Lock()
	d.state = StateIdle
	d.paused = false
	d.stopRequested = true
	r.Progress = d.progress
	d.mu.Unlock()

	tracer().Infof("run %s at %.2f%%", r.Outcome, r.Progress)
	result <- r
	close(result)
}

func (d *Device) flags() (paused, stop bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused, d.stopRequested
}

// send streams commands. The caller holds d.io.
func (d *Device) send(commands []gcode.Command) Result {
	if err := d.conn.Flush(); err != nil {
		return Result{Outcome: Aborted, Err: err}
	}
	for i, c := range commands {
		paused, stop := d.flags()
		if paused && !stop {
			if err := d.hold(commands, i); err != nil {
				return Result{Outcome: Aborted, Err: err}
			}
			for paused && !stop {
				time.Sleep(d.pollInterval)
				paused, stop = d.flags()
			}
		}
		if stop {
			return d.park(Result{Outcome: Stopped})
		}

		line := c.String()
		reply, err := d.exchange(line)
		if err != nil {
			tracer().Errorf("command %d %q failed: %v", i, line, err)
			return d.park(Result{Outcome: Aborted, Err: fmt.Errorf("command %d: %w", i, err)})
		}
		if len(reply) >= 6 && reply[3:6] == "E22" {
			tracer().Errorf("command %d %q is out of reach", i, line)
			return d.park(Result{
				Outcome: Aborted,
				Err:     &UnreachablePositionError{Command: line, Reply: reply},
			})
		}

		d.mu.Lock()
		d.progress = float64(i+1) / float64(len(commands)) * 100
		d.mu.Unlock()
	}
	return d.park(Result{Outcome: Completed})
}

// hold keeps the arm at the target of the last move sent before command i.
func (d *Device) hold(commands []gcode.Command, i int) error {
	target, found := gcode.Command{}, false
	for j := i - 1; j >= 0 && !found; j-- {
		target, found = commands[j], commands[j].Positional()
	}
	for j := 0; j < len(commands) && !found; j++ {
		target, found = commands[j], commands[j].Positional()
	}
	if !found {
		return nil
	}
	_, err := d.exchange(target.Hold().String())
	return err
}

func (d *Device) park(r Result) Result {
	if _, err := d.exchange(parkCommand); err != nil {
		tracer().Errorf("park failed: %v", err)
		if r.Err == nil {
			r.Outcome, r.Err = Aborted, err
		}
	}
	return r
}

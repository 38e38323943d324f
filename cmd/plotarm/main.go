package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	flag "github.com/spf13/pflag"

	"plotarm/pkg/cfg"
	"plotarm/pkg/device"
	"plotarm/pkg/document"
	"plotarm/pkg/gcode"
	"plotarm/pkg/importer"
	"plotarm/pkg/planner"
	"plotarm/pkg/preview"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

const usage = `usage: plotarm <command> [flags] [files]

commands:
  plan     plan files and write the program
  preview  render the planned toolpath to a PNG
  run      send the program to the arm (p+Enter pauses, r resumes, s stops)
  info     query the connected arm
  ports    list serial ports
`

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command, args := os.Args[1], os.Args[2:]
	var err error
	switch command {
	case "plan":
		err = planCommand(args)
	case "preview":
		err = previewCommand(args)
	case "run":
		err = runCommand(args)
	case "info":
		err = infoCommand(args)
	case "ports":
		err = portsCommand()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s", errStyle.Render(fmt.Sprintf("%s: %v", command, err)))
	}
}

// documentFlags are shared by every command that builds a document.
type documentFlags struct {
	config string
	mode   string
	order  int
	height float64
	dx, dy float64
	save   string
}

func (o *documentFlags) register(fs *flag.FlagSet) {
	fs.StringVarP(&o.config, "config", "c", "", "YAML configuration file")
	fs.StringVar(&o.mode, "mode", "", "burn or draw (default from config)")
	fs.IntVar(&o.order, "order", -1, "segment order: 0 greedy, 1 x asc, 2 x desc, 3 y asc, 4 y desc (default from config)")
	fs.Float64Var(&o.height, "height", 0, "work height in mm")
	fs.Float64Var(&o.dx, "dx", 0, "shift imported objects along x, in mm")
	fs.Float64Var(&o.dy, "dy", 0, "shift imported objects along y, in mm")
	fs.StringVar(&o.save, "save", "", "save the document as JSON")
}

func loadConfig(path string) (*cfg.Config, error) {
	config := cfg.Default()
	if path != "" {
		var err error
		if config, err = cfg.Load(path); err != nil {
			return nil, err
		}
	}
	config.Apply()
	return config, nil
}

// build loads a saved document or imports every file into a new one.
func (o *documentFlags) build(fs *flag.FlagSet, config *cfg.Config) (*document.Document, error) {
	files := fs.Args()
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files")
	}

	var d *document.Document
	if len(files) == 1 && strings.EqualFold(filepath.Ext(files[0]), ".json") {
		var err error
		if d, err = document.LoadFile(files[0]); err != nil {
			return nil, err
		}
	} else {
		d = document.New()
		machine := config.Machine
		d.Params = gcode.Params{
			WorkHeight: machine.WorkHeight,
			Feed:       machine.Feed,
			TravelFeed: machine.TravelFeed,
			ZOffset:    machine.ZOffset,
			Lift:       machine.Lift,
		}
		mode, err := gcode.ParseMode(machine.Mode)
		if err != nil {
			return nil, err
		}
		d.Params.Mode = mode
		d.Order = planner.OrderMode(machine.Order)
		for _, file := range files {
			id, err := d.ImportObject(file, importer.Auto)
			if err != nil {
				return nil, err
			}
			if object, ok := d.Object(id); ok {
				object.MoveBy(o.dx, o.dy)
			}
		}
	}

	if fs.Changed("mode") {
		mode, err := gcode.ParseMode(o.mode)
		if err != nil {
			return nil, err
		}
		d.Params.Mode = mode
	}
	if fs.Changed("order") {
		d.Order = planner.OrderMode(o.order)
	}
	if fs.Changed("height") {
		d.Params.WorkHeight = o.height
	}
	if o.save != "" {
		if err := d.SaveFile(o.save); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func parse(fs *flag.FlagSet, args []string) {
	fs.SetInterspersed(true)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}
}

func planCommand(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	var opts documentFlags
	opts.register(fs)
	out := fs.StringP("output", "o", "", "write the program to this file")
	parse(fs, args)

	config, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	d, err := opts.build(fs, config)
	if err != nil {
		return err
	}
	plan, err := d.Plan()
	if err != nil {
		return err
	}
	program, err := gcode.Generate(plan.Segments, d.Params)
	if err != nil {
		return err
	}
	printPlan(plan, program)

	if *out == "" {
		_, err = program.WriteTo(os.Stdout)
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if _, err := program.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printPlan(plan *planner.Plan, program *gcode.Program) {
	fmt.Fprintf(os.Stderr, "%s %d segments, %d commands\n",
		labelStyle.Render("plan:"), len(plan.Segments), program.Count)
	fmt.Fprintf(os.Stderr, "%s cut %.1f mm, travel %.1f mm\n",
		labelStyle.Render("distance:"), plan.CutDistance, plan.TravelDistance)
}

func previewCommand(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	var opts documentFlags
	opts.register(fs)
	out := fs.StringP("output", "o", "preview.png", "PNG file to write")
	scale := fs.Float64("scale", 4, "pixels per mm")
	noTravel := fs.Bool("no-travel", false, "leave out travel moves")
	parse(fs, args)

	config, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	d, err := opts.build(fs, config)
	if err != nil {
		return err
	}
	plan, err := d.Plan()
	if err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := preview.Render(plan, f, preview.Options{Scale: *scale, HideTravel: *noTravel}); err != nil {
		f.Close()
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("wrote"), *out)
	return f.Close()
}

func connect(port string, config *cfg.Config) (*device.Device, error) {
	if port == "" {
		port = config.Serial.Port
	}
	if port == "" {
		return nil, fmt.Errorf("no serial port given")
	}
	return device.Connect(port,
		device.WithBaud(config.Serial.Baud),
		device.WithReadTimeout(config.Serial.ReadTimeout))
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var opts documentFlags
	opts.register(fs)
	port := fs.StringP("port", "p", "", "serial port (default from config)")
	parse(fs, args)

	config, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	d, err := opts.build(fs, config)
	if err != nil {
		return err
	}
	program, err := d.Program()
	if err != nil {
		return err
	}

	arm, err := connect(*port, config)
	if err != nil {
		return err
	}
	defer arm.Close()
	if err := arm.SetMode(d.Params.Mode.DeviceMode()); err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	keys := readKeys(os.Stdin)

	done := arm.Start(program)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case r := <-done:
			fmt.Fprintln(os.Stderr)
			if r.Outcome == device.Completed {
				fmt.Fprintln(os.Stderr, okStyle.Render("done"))
				return nil
			}
			if r.Err != nil {
				return fmt.Errorf("%s at %.1f%%: %w", r.Outcome, r.Progress, r.Err)
			}
			fmt.Fprintf(os.Stderr, "%s at %.1f%%\n", r.Outcome, r.Progress)
			return nil
		case <-interrupt:
			fmt.Fprintf(os.Stderr, "\n%s\n", errStyle.Render("stopping"))
			arm.Stop()
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if action := control(arm, key); action != "" {
				fmt.Fprintf(os.Stderr, "\n%s\n", errStyle.Render(action))
			}
		case <-ticker.C:
			status := arm.Status()
			fmt.Fprintf(os.Stderr, "\r%s %5.1f%%", labelStyle.Render(string(status.State)), status.Progress)
		}
	}
}

type runController interface {
	Pause()
	Resume()
	Stop()
}

// control applies a console key to the running arm and names what it did,
// or returns "" for keys it does not know.
func control(arm runController, key string) string {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "p":
		arm.Pause()
		return "pausing"
	case "r":
		arm.Resume()
		return "resuming"
	case "s":
		arm.Stop()
		return "stopping"
	}
	return ""
}

// readKeys delivers r line by line until it ends.
func readKeys(r io.Reader) <-chan string {
	keys := make(chan string)
	go func() {
		defer close(keys)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			keys <- scanner.Text()
		}
	}()
	return keys
}

func infoCommand(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "YAML configuration file")
	port := fs.StringP("port", "p", "", "serial port (default from config)")
	parse(fs, args)

	config, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	arm, err := connect(*port, config)
	if err != nil {
		return err
	}
	defer arm.Close()

	for _, q := range []struct {
		label string
		get   func() (string, error)
	}{
		{"device", arm.DeviceName},
		{"hardware", arm.HardwareVersion},
		{"software", arm.SoftwareVersion},
		{"api", arm.APIVersion},
	} {
		value, err := q.get()
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", labelStyle.Render(q.label+":"), value)
	}
	mode, err := arm.Mode()
	if err != nil {
		return err
	}
	fmt.Printf("%s %d\n", labelStyle.Render("mode:"), mode)
	return nil
}

func portsCommand() error {
	ports, err := device.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(os.Stderr, "no serial ports found")
	}
	for _, port := range ports {
		fmt.Println(port)
	}
	return nil
}

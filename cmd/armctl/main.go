package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/theckman/yacspin"
	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/penarm/arm"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "armctl.yml"
)

func root() {
	str := `armctl drives a pen-carrying robot arm from a plot script.
Targets are given in workspace coordinates and translated to arm moves.

Usage:
	armctl <command>

Commands:
	run [script]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `armctl is amenable to configuration via its .yml file, armctl.yml in the
working directory.  Use mkconf to write one with the defaults.

Arm:
	OriginShiftX, OriginShiftY  workspace coordinates of the arm origin
	MinDimensionHalf            half the smaller workspace dimension, > 0

Driver (Stäubli V+ listener):
	Addr        /dev/ttyS0 or host:port of a terminal server
	Serial      true for RS232, false for TCP
	Baud        serial baud rate
	TimeoutMs   round trip timeout per telegram
	Scale       millimetres per normalized arm unit
	MaxRate     maximum telegrams per second, 0 for no limit
	Limits      software limits in mm, e.g. Limits: {Z: {Min: -50, Max: 50}}
	Verbose     log every telegram

Mock: true replaces the arm with an in-memory driver that logs each move.

Scripts are read from the named file, or stdin.  One command per line, # starts
a comment:
	move X Y       move to workspace point (X, Y)
	polar R T      move to radius R, angle T (radians) in the arm frame
	pen up|down    raise or lower the pen
	z V            set the vertical shift
	home           raise the pen and move to the workspace origin
	connect
	disconnect`
	fmt.Println(str)
}

func mkconf() {
	c, err := loadConfig(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c, err := loadConfig(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("armctl version %v\n", Version)
}

// spin shows a spinner on stderr while fn runs
func spin(msg string, fn func() error) error {
	s, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " " + msg,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
		Writer:            os.Stderr,
	})
	if err != nil {
		return fn()
	}
	s.Start()
	err = fn()
	if err != nil {
		s.StopFail()
	} else {
		s.Stop()
	}
	return err
}

func run(args []string) {
	c, err := loadConfig(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	var in io.Reader = os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	act := BuildActuator(c)
	var ctl *arm.Controller
	err = spin("connecting to arm", func() error {
		var err error
		ctl, err = arm.NewController(c.Arm, act)
		return err
	})
	if err != nil {
		log.Fatal(err)
	}
	// the pen must come up however the script ends, ^C included
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = RunScript(ctx, ctl, in)
	if cerr := ctl.Close(); cerr != nil {
		log.Println("error disconnecting arm:", cerr)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// commands maps each CLI command to its handler, which gets the arguments
// after the command name
var commands = map[string]func(args []string){
	"help":    func([]string) { help() },
	"mkconf":  func([]string) { mkconf() },
	"conf":    func([]string) { printconf() },
	"run":     run,
	"version": func([]string) { pversion() },
}

func main() {
	if len(os.Args) < 2 {
		root()
		return
	}
	cmd, ok := commands[strings.ToLower(os.Args[1])]
	if !ok {
		fmt.Fprintf(os.Stderr, "armctl: unknown command %q\n\n", os.Args[1])
		root()
		os.Exit(2)
	}
	cmd(os.Args[2:])
}

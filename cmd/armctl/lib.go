package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/pkg/errors"

	"github.com/nasa-jpl/penarm/arm"
	"github.com/nasa-jpl/penarm/staubli"
)

// Config is the configuration of armctl.  It is populated from the defaults
// and then the config file.
type Config struct {
	// Mock replaces the arm with an in-memory driver
	Mock bool `koanf:"Mock" yaml:"Mock"`

	// Arm holds the workspace geometry
	Arm arm.Config `koanf:"Arm" yaml:"Arm"`

	// Driver holds the connection to the arm
	Driver staubli.Config `koanf:"Driver" yaml:"Driver"`
}

// DefaultConfig is the configuration used for anything the file leaves out
func DefaultConfig() Config {
	return Config{
		Arm: arm.Config{MinDimensionHalf: 100},
		Driver: staubli.Config{
			Addr:   "/dev/ttyS0",
			Serial: true,
			Baud:   staubli.DefaultBaud,
			Scale:  staubli.DefaultScale,
		},
	}
}

func loadConfig(path string) (Config, error) {
	c := Config{}
	k := koanf.New(".")
	k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			return c, errors.Wrap(err, "error loading config")
		}
	}
	err := k.Unmarshal("", &c)
	return c, err
}

// BuildActuator returns the driver described by c
func BuildActuator(c Config) arm.Actuator {
	if c.Mock {
		return loggingActuator{arm.NewMockActuator()}
	}
	return staubli.NewArm(c.Driver)
}

// loggingActuator logs each call made to a mock, so a dry run shows what the
// arm would have done
type loggingActuator struct {
	*arm.MockActuator
}

func (l loggingActuator) Connect() error {
	err := l.MockActuator.Connect()
	log.Println("mock arm: connect")
	return err
}

func (l loggingActuator) Disconnect() error {
	err := l.MockActuator.Disconnect()
	log.Println("mock arm: disconnect")
	return err
}

func (l loggingActuator) Move(x, y, z float64, kinematic bool) error {
	err := l.MockActuator.Move(x, y, z, kinematic)
	if c, ok := l.Last(); ok {
		log.Println("mock arm:", c)
	}
	return err
}

// ErrUnknownCommand is generated when a script line starts with a word that
// is not a command
type ErrUnknownCommand struct {
	Cmd string
}

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("command %s not found", e.Cmd)
}

// RunScript executes the plot script read from r against ctl, stopping at
// the first bad line or arm fault.  Cancelling ctx stops it between lines.
func RunScript(ctx context.Context, ctl *arm.Controller, r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "stopped before line %d", lineno)
		}
		words, err := shlex.Split(sc.Text())
		if err != nil {
			return errors.Wrapf(err, "line %d", lineno)
		}
		if len(words) == 0 {
			continue
		}
		if err := execute(ctl, words); err != nil {
			return errors.Wrapf(err, "line %d", lineno)
		}
	}
	return sc.Err()
}

func floats(words []string, n int) ([]float64, error) {
	if len(words)-1 != n {
		return nil, errors.Errorf("%s takes %d arguments, got %d", words[0], n, len(words)-1)
	}
	out := make([]float64, n)
	for i, w := range words[1:] {
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s argument %d", words[0], i+1)
		}
		out[i] = f
	}
	return out, nil
}

func execute(ctl *arm.Controller, words []string) error {
	cmd := strings.ToLower(words[0])
	switch cmd {
	case "move":
		f, err := floats(words, 2)
		if err != nil {
			return err
		}
		return ctl.MoveTo(arm.Point{X: f[0], Y: f[1]})
	case "polar":
		f, err := floats(words, 2)
		if err != nil {
			return err
		}
		return ctl.MoveToPolar(f[0], f[1])
	case "z":
		f, err := floats(words, 1)
		if err != nil {
			return err
		}
		return ctl.SetVerticalShift(f[0])
	case "pen":
		if len(words) != 2 {
			return errors.Errorf("pen takes up or down, got %v", words[1:])
		}
		switch strings.ToLower(words[1]) {
		case "up":
			return ctl.SetPenDown(false)
		case "down":
			return ctl.SetPenDown(true)
		default:
			return errors.Errorf("pen takes up or down, got %s", words[1])
		}
	case "home":
		return ctl.Home()
	case "connect":
		return ctl.Connect()
	case "disconnect":
		return ctl.Disconnect()
	default:
		return ErrUnknownCommand{words[0]}
	}
}

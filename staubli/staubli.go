// Package staubli provides an arm.Actuator for a Stäubli arm whose controller
// runs a small V+ listener program on its data line.
//
// The listener reads one telegram per line:
//
//	0 x y z    MOVE to (x, y, z), joint interpolated
//	1 x y z    MOVES to (x, y, z), in a straight line
//	2          BREAK, wait for the arm to settle and report where it is
//
// and answers each with a line beginning with OK, or with an error message.
// Coordinates on the wire are millimetres.
package staubli

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/penarm/arm"
	"github.com/nasa-jpl/penarm/comm"
	"github.com/nasa-jpl/penarm/util"
)

const (
	// DefaultScale is the number of millimetres per normalized arm unit
	DefaultScale = 100.

	// DefaultBaud is the baud rate of the controller's data line
	DefaultBaud = 19200

	codeMove         = 0
	codeMoveStraight = 1
	codeBreak        = 2
)

var (
	// ErrOutOfRange is generated when a move would violate a software limit.
	// Nothing is sent to the arm.
	ErrOutOfRange = errors.New("requested position violates software limits, aborted")
)

// Config holds the setup of an Arm
type Config struct {
	// Addr is the serial device (/dev/ttyS0) or host:port of a terminal server
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Serial determines if the connection is serial/RS232 (True) or TCP (False)
	Serial bool `koanf:"Serial" yaml:"Serial"`

	// Baud is the serial baud rate, DefaultBaud if zero
	Baud int `koanf:"Baud" yaml:"Baud"`

	// TimeoutMs bounds each telegram round trip, comm.DefaultTimeout if zero
	TimeoutMs int `koanf:"TimeoutMs" yaml:"TimeoutMs"`

	// Scale converts normalized arm units to millimetres, DefaultScale if zero
	Scale float64 `koanf:"Scale" yaml:"Scale"`

	// MaxRate caps telegrams per second; zero is unlimited
	MaxRate float64 `koanf:"MaxRate" yaml:"MaxRate"`

	// Limits are software limits in millimetres, keyed by X, Y or Z
	Limits map[string]util.Limiter `koanf:"Limits" yaml:"Limits"`

	// Verbose logs every telegram
	Verbose bool `koanf:"Verbose" yaml:"Verbose"`
}

func (c Config) serialConf() *serial.Config {
	baud := c.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	return &serial.Config{
		Name:        c.Addr,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: c.timeout()}
}

func (c Config) timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return comm.DefaultTimeout
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

var _ arm.Actuator = (*Arm)(nil)

// Arm is a Stäubli arm reached through a RemoteDevice
type Arm struct {
	rd      *comm.RemoteDevice
	scale   float64
	limits  map[string]util.Limiter
	limiter *rate.Limiter
	verbose bool

	x, y, z float64
}

// NewArm returns a disconnected Arm for cfg
func NewArm(cfg Config) *Arm {
	rd := comm.NewRemoteDevice(cfg.Addr, cfg.Serial, cfg.serialConf())
	return NewArmWithDevice(rd, cfg)
}

// NewArmWithDevice returns an Arm which talks through rd.  Only the motion
// related fields of cfg are used.
func NewArmWithDevice(rd *comm.RemoteDevice, cfg Config) *Arm {
	rd.Timeout = cfg.timeout()
	a := &Arm{
		rd:      rd,
		scale:   cfg.Scale,
		limits:  cfg.Limits,
		verbose: cfg.Verbose,
	}
	if a.scale == 0 {
		a.scale = DefaultScale
	}
	if cfg.MaxRate > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRate), 1)
	}
	return a
}

// Connect opens the link and checks the listener answers a break
func (a *Arm) Connect() error {
	if err := a.rd.Open(); err != nil {
		return err
	}
	if err := a.Break(); err != nil {
		a.rd.Close()
		return errors.Wrap(err, "arm did not answer on connect")
	}
	return nil
}

// Disconnect closes the link.  Disconnecting a closed link does nothing.
func (a *Arm) Disconnect() error {
	return a.rd.Close()
}

// Connected returns true while the link is open
func (a *Arm) Connected() bool {
	return a.rd.IsOpen()
}

// Move the arm to (x, y, z) in normalized arm units.  kinematic selects a
// joint interpolated move; otherwise the arm moves in a straight line.
func (a *Arm) Move(x, y, z float64, kinematic bool) error {
	x, y, z = a.mm(x), a.mm(y), a.mm(z)
	axes := []struct {
		name string
		v    float64
	}{{"X", x}, {"Y", y}, {"Z", z}}
	for _, ax := range axes {
		if lim, ok := a.limits[ax.name]; ok && !lim.Check(ax.v) {
			return errors.Wrapf(ErrOutOfRange, "%s=%.3f outside %v", ax.name, ax.v, lim)
		}
	}
	code := codeMoveStraight
	if kinematic {
		code = codeMove
	}
	_, err := a.command(fmt.Sprintf("%d %.3f %.3f %.3f", code, x, y, z))
	return err
}

// Break waits until the arm reaches its current destination.  It also
// updates the position returned by Position.
func (a *Arm) Break() error {
	r, err := a.command(fmt.Sprint(codeBreak))
	if err != nil {
		return err
	}
	var x, y, z float64
	_, err = fmt.Sscan(r[2:], &x, &y, &z)
	if err != nil {
		return errors.Wrapf(err, "error parsing reply from arm: %q", r)
	}
	a.x, a.y, a.z = x, y, z
	return nil
}

// Position returns the position in millimetres reported by the last Break
func (a *Arm) Position() (x, y, z float64) {
	return a.x, a.y, a.z
}

// mm scales to millimetres at the resolution of the wire format.
// The +0 turns -0 into 0 so it is not sent as -0.000.
func (a *Arm) mm(v float64) float64 {
	return util.Round(v*a.scale, 0.001) + 0
}

// command sends one telegram and returns the reply.  A failed round trip
// closes the link, since a late reply would otherwise be read as the answer
// to the next telegram.
func (a *Arm) command(tele string) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(context.Background()); err != nil {
			return "", err
		}
	}
	if a.verbose {
		log.Printf("staubli %s -> %s", a.rd.Addr, tele)
	}
	resp, err := a.rd.SendRecv([]byte(tele))
	if err != nil {
		a.rd.Close()
		return "", errors.Wrapf(err, "error sending %q to arm", tele)
	}
	r := string(resp)
	if a.verbose {
		log.Printf("staubli %s <- %s", a.rd.Addr, r)
	}
	if !strings.HasPrefix(r, "OK") {
		return "", errors.Errorf("error from arm: %s", r)
	}
	return r, nil
}

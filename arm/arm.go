/*Package arm translates planar workspace targets into motion commands for a
pen-carrying robot arm, and tracks the arm's connection and pen state.

The Controller owns the transform parameters and delegates every physical
action to an Actuator.  While the controller is disconnected, all motion and
pen operations are accepted and silently dropped; nothing reaches the
actuator.  Faults raised by the actuator are returned to the caller as-is.

A minimal session looks like

	ctl, err := arm.NewController(arm.Config{MinDimensionHalf: 50}, act)
	if err != nil {
		return err
	}
	defer ctl.Close()
	ctl.SetPenDown(true)
	ctl.MoveTo(arm.Point{X: 10, Y: 20})

Controller is not safe for concurrent use; callers which share one must
serialize access.
*/
package arm

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

const (
	// ScalingFactorX scales the arm-frame x axis (driven by workspace Y)
	ScalingFactorX = 1.2

	// ScalingFactorY scales the arm-frame y axis (driven by workspace X)
	ScalingFactorY = 1.0

	// PenUpClearance is the height of the raised pen above the working
	// height, before the vertical shift is applied
	PenUpClearance = 0.4
)

var (
	// ErrInvalidMinDimension is generated when a Config's MinDimensionHalf
	// cannot be used as a divisor
	ErrInvalidMinDimension = errors.New("MinDimensionHalf must be finite and greater than zero")
)

// Actuator is the capability the controller drives.  Coordinates are in the
// actuator's native frame; kinematic selects which of two motion
// interpretations the actuator applies to them.
type Actuator interface {
	// Connect establishes the link to the arm
	Connect() error

	// Disconnect releases the link
	Disconnect() error

	// Move commands an absolute motion
	Move(x, y, z float64, kinematic bool) error
}

// Point is a position in workspace coordinates
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Config holds the workspace geometry.  It is fixed for the life of a
// Controller.
type Config struct {
	// OriginShiftX is the workspace X coordinate of the arm's origin
	OriginShiftX float64 `koanf:"OriginShiftX" yaml:"OriginShiftX"`

	// OriginShiftY is the workspace Y coordinate of the arm's origin
	OriginShiftY float64 `koanf:"OriginShiftY" yaml:"OriginShiftY"`

	// MinDimensionHalf is half the smaller workspace dimension, used to
	// normalize workspace offsets into arm units
	MinDimensionHalf float64 `koanf:"MinDimensionHalf" yaml:"MinDimensionHalf"`
}

// Validate returns an error if the config cannot be used by a Controller
func (c Config) Validate() error {
	m := c.MinDimensionHalf
	if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return errors.Wrapf(ErrInvalidMinDimension, "got %v", m)
	}
	return nil
}

// Controller converts workspace targets to actuator moves and holds the
// connection and pen state of the arm.
type Controller struct {
	cfg Config
	act Actuator

	verticalShift float64
	connected     bool
	penDown       bool
	lastTarget    Point
	kinematic     bool
}

// NewController validates cfg and returns a controller that has already
// connected to act.  A connection fault from act is returned unmodified.
func NewController(cfg Config, act Actuator) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{cfg: cfg, act: act, kinematic: true}
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Config returns the workspace geometry of the controller
func (c *Controller) Config() Config {
	return c.cfg
}

// Connect connects the actuator.  There is no guard against connecting
// twice; an already connected controller connects the actuator again.
func (c *Controller) Connect() error {
	if err := c.act.Connect(); err != nil {
		return err
	}
	c.connected = true
	return nil
}

// Disconnect lifts the pen and then disconnects the actuator.  It does
// nothing if the controller is not connected.  If lifting the pen fails the
// actuator is left connected.
func (c *Controller) Disconnect() error {
	if !c.connected {
		return nil
	}
	if err := c.SetPenDown(false); err != nil {
		return err
	}
	if err := c.act.Disconnect(); err != nil {
		return err
	}
	c.connected = false
	return nil
}

// Close is Disconnect, so a Controller can be deferred as an io.Closer
func (c *Controller) Close() error {
	return c.Disconnect()
}

// Connected returns true if the controller is connected
func (c *Controller) Connected() bool {
	return c.connected
}

// PenDown returns true if the pen is lowered
func (c *Controller) PenDown() bool {
	return c.penDown
}

// VerticalShift returns the current z offset
func (c *Controller) VerticalShift() float64 {
	return c.verticalShift
}

// LastTarget returns the most recent point passed to MoveTo while connected
func (c *Controller) LastTarget() Point {
	return c.lastTarget
}

// KinematicMode returns the mode flag passed with every actuator move
func (c *Controller) KinematicMode() bool {
	return c.kinematic
}

// SetVerticalShift stores a new z offset, then re-sends the last target so
// the arm's height follows.  The offset is stored even when disconnected;
// only the motion is dropped.
func (c *Controller) SetVerticalShift(v float64) error {
	c.verticalShift = v
	return c.MoveTo(c.lastTarget)
}

// SetPenDown lowers (true) or raises (false) the pen by re-sending the last
// target at the matching height.  While disconnected the request is dropped
// and the pen state is left unchanged.
func (c *Controller) SetPenDown(down bool) error {
	if !c.connected {
		return nil
	}
	c.penDown = down
	return c.MoveTo(c.lastTarget)
}

// MoveToPolar moves to radius r and angle t (radians) in the arm frame, at
// the height given by the pen state and vertical shift
func (c *Controller) MoveToPolar(r, t float64) error {
	if !c.connected {
		return nil
	}
	x, y := FromPolar(r, t)
	z := PenHeight(c.penDown, c.verticalShift)
	return c.act.Move(x, y, z, c.kinematic)
}

// MoveTo moves to a workspace point and records it as the last target
func (c *Controller) MoveTo(p Point) error {
	if !c.connected {
		return nil
	}
	c.lastTarget = p
	x, y := c.cfg.ToArmFrame(p)
	r, t := ToPolar(x, y)
	return c.MoveToPolar(r, t)
}

// Home raises the pen and moves to the workspace origin
func (c *Controller) Home() error {
	if !c.connected {
		return nil
	}
	if err := c.SetPenDown(false); err != nil {
		return err
	}
	return c.MoveTo(Point{})
}

package main

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"

	"github.com/nasa-jpl/penarm/arm"
	"github.com/nasa-jpl/penarm/staubli"
	"github.com/nasa-jpl/penarm/util"
)

func newMockController(t *testing.T) (*arm.Controller, *arm.MockActuator) {
	t.Helper()
	mock := arm.NewMockActuator()
	ctl, err := arm.NewController(arm.Config{MinDimensionHalf: 50}, mock)
	if err != nil {
		t.Fatal(err)
	}
	mock.Reset()
	return ctl, mock
}

func TestRunScript(t *testing.T) {
	ctl, mock := newMockController(t)
	script := `
# square corner
move 50 0
pen down
z 0.5   # lift the page
polar 1 0
PEN UP
home
disconnect
move 1 1
connect
move 50 0
`
	if err := RunScript(context.Background(), ctl, strings.NewReader(script)); err != nil {
		t.Fatal(err)
	}
	want := []arm.Call{
		{Op: arm.OpMove, X: 0, Y: 1, Z: 0.4, Kinematic: true},
		{Op: arm.OpMove, X: 0, Y: 1, Z: 0, Kinematic: true},
		{Op: arm.OpMove, X: 0, Y: 1, Z: -0.5, Kinematic: true},
		{Op: arm.OpMove, X: 0, Y: 1, Z: -0.5, Kinematic: true},
		{Op: arm.OpMove, X: 0, Y: 1, Z: arm.PenUpClearance - 0.5, Kinematic: true},
		{Op: arm.OpMove, X: 0, Y: 1, Z: arm.PenUpClearance - 0.5, Kinematic: true},
		{Op: arm.OpMove, X: 0, Y: 0, Z: arm.PenUpClearance - 0.5, Kinematic: true},
		{Op: arm.OpMove, X: 0, Y: 0, Z: arm.PenUpClearance - 0.5, Kinematic: true},
		{Op: arm.OpDisconnect},
		{Op: arm.OpConnect},
		{Op: arm.OpMove, X: 0, Y: 1, Z: arm.PenUpClearance - 0.5, Kinematic: true},
	}
	if diff := cmp.Diff(want, mock.Calls(), cmpopts.EquateApprox(1e-12, 1e-12)); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRunScriptReportsLine(t *testing.T) {
	ctl, _ := newMockController(t)
	err := RunScript(context.Background(), ctl, strings.NewReader("move 1 2\n\njump 3\n"))
	if _, ok := errors.Cause(err).(ErrUnknownCommand); !ok {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("expected the line number in %q", err)
	}
}

func TestRunScriptBadArguments(t *testing.T) {
	for _, line := range []string{"move 1", "move a b", "z", "pen sideways", "polar 1 2 3"} {
		ctl, mock := newMockController(t)
		if err := RunScript(context.Background(), ctl, strings.NewReader(line)); err == nil {
			t.Errorf("%q: expected an error", line)
		}
		if n := len(mock.Calls()); n != 0 {
			t.Errorf("%q: expected no arm calls, got %d", line, n)
		}
	}
}

func TestRunScriptStopsOnArmFault(t *testing.T) {
	ctl, mock := newMockController(t)
	fault := errors.New("collision")
	mock.MoveErr = fault
	err := RunScript(context.Background(), ctl, strings.NewReader("move 1 1\nmove 2 2\n"))
	if errors.Cause(err) != fault {
		t.Errorf("expected the arm fault, got %v", err)
	}
	if n := len(mock.Moves()); n != 1 {
		t.Errorf("expected the script to stop after the first move, got %d moves", n)
	}
}

// cancelOnMove cancels a context the first time the arm moves
type cancelOnMove struct {
	*arm.MockActuator
	cancel context.CancelFunc
}

func (c cancelOnMove) Move(x, y, z float64, kinematic bool) error {
	c.cancel()
	return c.MockActuator.Move(x, y, z, kinematic)
}

func TestRunScriptStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mock := arm.NewMockActuator()
	ctl, err := arm.NewController(arm.Config{MinDimensionHalf: 50}, cancelOnMove{mock, cancel})
	if err != nil {
		t.Fatal(err)
	}
	mock.Reset()

	err = RunScript(ctx, ctl, strings.NewReader("pen down\nmove 50 0\n"))
	if errors.Cause(err) != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected the stopping line in %q", err)
	}
	if err := ctl.Close(); err != nil {
		t.Fatal(err)
	}
	want := []arm.Call{
		{Op: arm.OpMove, X: 0, Y: 0, Z: 0, Kinematic: true},
		{Op: arm.OpMove, X: 0, Y: 0, Z: arm.PenUpClearance, Kinematic: true},
		{Op: arm.OpDisconnect},
	}
	if diff := cmp.Diff(want, mock.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(DefaultConfig(), c, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("expected defaults for a missing file (-want +got):\n%s", diff)
	}
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armctl.yml")
	body := `Mock: true
Arm:
  OriginShiftX: 105
  MinDimensionHalf: 75
Driver:
  Addr: 192.168.100.123:2006
  Serial: false
  Limits:
    Z:
      Min: -50
      Max: 50
`
	if err := ioutil.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Mock = true
	want.Arm.OriginShiftX = 105
	want.Arm.MinDimensionHalf = 75
	want.Driver.Addr = "192.168.100.123:2006"
	want.Driver.Serial = false
	want.Driver.Limits = map[string]util.Limiter{"Z": {Min: -50, Max: 50}}
	if diff := cmp.Diff(want, c, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildActuator(t *testing.T) {
	c := DefaultConfig()
	if _, ok := BuildActuator(c).(*staubli.Arm); !ok {
		t.Error("expected a Stäubli driver when not mocked")
	}
	c.Mock = true
	act := BuildActuator(c)
	ctl, err := arm.NewController(c.Arm, act)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctl.Close(); err != nil {
		t.Fatal(err)
	}
	la, ok := act.(loggingActuator)
	if !ok {
		t.Fatalf("expected the mock driver, got %T", act)
	}
	if la.IsConnected() {
		t.Error("expected the mock to be disconnected after Close")
	}
}

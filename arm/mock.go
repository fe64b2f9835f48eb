package arm

import (
	"fmt"
	"sync"
)

// Op names an actuator call recorded by MockActuator
type Op string

const (
	OpConnect    Op = "connect"
	OpDisconnect Op = "disconnect"
	OpMove       Op = "move"
)

// Call is one recorded actuator call.  The coordinates are zero for
// anything but a move.
type Call struct {
	Op        Op
	X, Y, Z   float64
	Kinematic bool
}

func (c Call) String() string {
	if c.Op != OpMove {
		return string(c.Op)
	}
	return fmt.Sprintf("move(%g, %g, %g, %t)", c.X, c.Y, c.Z, c.Kinematic)
}

// MockActuator is an in-memory Actuator which records every call made to it.
// Setting one of the Err fields makes the matching call fail with it; the
// failed call is still recorded.
type MockActuator struct {
	sync.Mutex
	ConnectErr    error
	DisconnectErr error
	MoveErr       error

	calls     []Call
	connected bool
}

// NewMockActuator returns a disconnected mock
func NewMockActuator() *MockActuator {
	return &MockActuator{}
}

// Connect records a connect and marks the mock connected
func (m *MockActuator) Connect() error {
	m.Lock()
	defer m.Unlock()
	m.calls = append(m.calls, Call{Op: OpConnect})
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connected = true
	return nil
}

// Disconnect records a disconnect and marks the mock disconnected
func (m *MockActuator) Disconnect() error {
	m.Lock()
	defer m.Unlock()
	m.calls = append(m.calls, Call{Op: OpDisconnect})
	if m.DisconnectErr != nil {
		return m.DisconnectErr
	}
	m.connected = false
	return nil
}

// Move records a move
func (m *MockActuator) Move(x, y, z float64, kinematic bool) error {
	m.Lock()
	defer m.Unlock()
	m.calls = append(m.calls, Call{Op: OpMove, X: x, Y: y, Z: z, Kinematic: kinematic})
	return m.MoveErr
}

// IsConnected returns true between a successful Connect and Disconnect
func (m *MockActuator) IsConnected() bool {
	m.Lock()
	defer m.Unlock()
	return m.connected
}

// Calls returns a copy of every call recorded so far
func (m *MockActuator) Calls() []Call {
	m.Lock()
	defer m.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Moves returns only the recorded moves
func (m *MockActuator) Moves() []Call {
	m.Lock()
	defer m.Unlock()
	out := []Call{}
	for _, c := range m.calls {
		if c.Op == OpMove {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call, and false if there are none
func (m *MockActuator) Last() (Call, bool) {
	m.Lock()
	defer m.Unlock()
	if len(m.calls) == 0 {
		return Call{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// Reset forgets the recorded calls, leaving the connection state as-is
func (m *MockActuator) Reset() {
	m.Lock()
	defer m.Unlock()
	m.calls = nil
}

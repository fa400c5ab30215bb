package actuator

import "sync"

// MockCall records one SetAngle invocation.
type MockCall struct {
	Axis    Axis
	Degrees int
}

// Mock is a recording driver for tests and for development off-target.
type Mock struct {
	mu     sync.Mutex
	angles map[Axis]int
	calls  []MockCall
	err    error
}

// NewMock returns an empty recording driver.
func NewMock() *Mock {
	return &Mock{angles: make(map[Axis]int)}
}

func (m *Mock) SetAngle(axis Axis, degrees int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.angles[axis] = degrees
	m.calls = append(m.calls, MockCall{Axis: axis, Degrees: degrees})
	return nil
}

func (m *Mock) Close() error { return nil }

// Angle returns the last angle written to an axis.
func (m *Mock) Angle(axis Axis) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.angles[axis]
	return v, ok
}

// Calls returns a copy of every recorded write, in order.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// FailWith makes every subsequent SetAngle return err.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

package geometry

import "sync"

// The process-wide geometry, created on first use.
var (
	instance   *Geometry
	instanceMu sync.Mutex
)

// Instance returns the process-wide Geometry, creating it with
// DefaultSettings on first use.
func Instance() *Geometry {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = New(DefaultSettings())
	}
	return instance
}

// InstallInstance makes g the process-wide Geometry. It fails with
// ErrAlreadyInitialized if an initialised instance is already installed.
// An uninitialised instance being replaced is Reset, closing its calculators.
func InstallInstance(g *Geometry) error {
	if g == nil {
		return ErrInvalidParameter
	}
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil && instance != g {
		if instance.IsInitialized() {
			return ErrAlreadyInitialized
		}
		instance.Reset()
	}
	instance = g
	return nil
}

// ResetInstance tears down the process-wide Geometry; the next Instance call
// creates a fresh one. No queries may be in flight.
func ResetInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		instance.Reset()
		instance = nil
	}
}

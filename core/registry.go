package core

// Registry is the process-wide table of configured steppers, indexed by
// oid exactly like Klipper's oid_alloc/oid_lookup convention (the teacher's
// earlier stepper.go used a plain steppers[16]*Stepper array for the same
// reason: the array itself is the allocation and lookup, constant time, no
// map overhead on an MCU).
type Registry struct {
	steppers [maxSteppers]*Stepper
	count    uint8
}

// maxSteppers bounds how many stepper oids a single MCU image can host.
const maxSteppers = 16

var globalStepperRegistry = &Registry{}

// GetRegistry returns the global stepper registry.
func GetRegistry() *Registry { return globalStepperRegistry }

// Add registers a newly configured stepper under its oid.
func (r *Registry) Add(s *Stepper) error {
	if s.oid >= maxSteppers {
		return errInvalidOID
	}
	r.steppers[s.oid] = s
	if s.oid >= r.count {
		r.count = s.oid + 1
	}
	return nil
}

// Get returns the stepper configured at oid, or nil.
func (r *Registry) Get(oid uint8) *Stepper {
	if oid >= maxSteppers {
		return nil
	}
	return r.steppers[oid]
}

// GetStepper returns the stepper configured at oid from the global registry,
// or nil if oid was never configured.
func GetStepper(oid uint8) *Stepper { return globalStepperRegistry.Get(oid) }

// Each calls fn for every configured stepper, in oid order.
func (r *Registry) Each(fn func(*Stepper)) {
	for i := uint8(0); i < r.count; i++ {
		if s := r.steppers[i]; s != nil {
			fn(s)
		}
	}
}

// ShutdownAll stops every configured stepper. Mirrors Klipper's
// stepper_shutdown DECL_SHUTDOWN handler: drop queued moves and force the
// hardware outputs to a safe idle state.
func (r *Registry) ShutdownAll() {
	r.Each(func(s *Stepper) {
		s.first = nil
		s.Stop()
	})
}

// ShutdownAll stops every configured stepper, via the global registry.
func ShutdownAll() { globalStepperRegistry.ShutdownAll() }

// GetTotalStepCount sums total steps executed across all configured
// steppers, for the post-mortem timing dump.
func GetTotalStepCount() uint32 {
	var total uint32
	globalStepperRegistry.Each(func(s *Stepper) {
		total += s.totalSteps
	})
	return total
}

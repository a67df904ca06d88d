package core

import "testing"

func TestRegistryAddGetEach(t *testing.T) {
	r := &Registry{}
	withFakeGPIO()

	s0, _ := NewStepper(0, 0, 1, false, 0)
	s1, _ := NewStepper(1, 2, 3, false, 0)

	if err := r.Add(s0); err != nil {
		t.Fatalf("Add s0: %v", err)
	}
	if err := r.Add(s1); err != nil {
		t.Fatalf("Add s1: %v", err)
	}

	if got := r.Get(0); got != s0 {
		t.Errorf("Get(0) = %v, want %v", got, s0)
	}
	if got := r.Get(1); got != s1 {
		t.Errorf("Get(1) = %v, want %v", got, s1)
	}
	if got := r.Get(5); got != nil {
		t.Errorf("Get(5) = %v, want nil for unconfigured oid", got)
	}

	seen := 0
	r.Each(func(s *Stepper) { seen++ })
	if seen != 2 {
		t.Errorf("Each visited %d steppers, want 2", seen)
	}
}

func TestRegistryAddRejectsOutOfRangeOID(t *testing.T) {
	r := &Registry{}
	withFakeGPIO()

	s, _ := NewStepper(maxSteppers, 0, 1, false, 0)
	if err := r.Add(s); err != errInvalidOID {
		t.Errorf("Add with oid=maxSteppers error = %v, want errInvalidOID", err)
	}
}

func TestRegistryShutdownAllStopsEveryStepper(t *testing.T) {
	ResetFirmwareState()
	withFakeGPIO()

	r := &Registry{}
	s, _ := NewStepper(0, 0, 1, false, 0)
	if err := s.ResetStepClock(0); err != nil {
		t.Fatalf("ResetStepClock: %v", err)
	}
	if err := s.QueueStep(1000, 20, 0); err != nil {
		t.Fatalf("QueueStep: %v", err)
	}
	r.Add(s)

	r.ShutdownAll()

	if s.IsActive() {
		t.Error("expected ShutdownAll to stop the in-flight move")
	}
}

package core

import (
	"sync/atomic"

	"gopper/protocol"
)

// FirmwareState holds the global firmware state. Split out of commands.go
// (tinygo-only) because the scheduler and the stepper engine need to trigger
// and query shutdown from host-testable code too.
type FirmwareState struct {
	configCRC  uint32 // atomic
	isShutdown uint32 // atomic bool
	moveCount  uint16
}

var globalState = &FirmwareState{
	moveCount: 16, // Command queue size - minimum for Klipper
}

// TryShutdown triggers a firmware shutdown with a reason message. Mirrors
// Klipper's shutdown(): idempotent, and every stepper is forced to a safe
// idle state via ShutdownAll.
func TryShutdown(reason string) {
	if atomic.SwapUint32(&globalState.isShutdown, 1) != 0 {
		return
	}
	DebugPrintln("[SHUTDOWN] " + reason)
	ShutdownAll()
}

// IsShutdown returns true if the firmware is in shutdown state.
func IsShutdown() bool {
	return atomic.LoadUint32(&globalState.isShutdown) != 0
}

// ResetFirmwareState resets the firmware state for reconnection. This is
// called when USB reconnects or firmware restart is requested.
func ResetFirmwareState() {
	atomic.StoreUint32(&globalState.configCRC, 0)
	atomic.StoreUint32(&globalState.isShutdown, 0)
	// moveCount is not reset - it's a firmware constant
}

// Global transport for sending responses (set by main).
var globalTransport *protocol.Transport

// SetGlobalTransport sets the global transport for sending responses.
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// SendResponse sends a response message using the global transport.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport != nil {
		cmd, ok := globalRegistry.GetCommandByName(responseName)
		if !ok {
			panic("Response not registered: " + responseName)
		}
		globalTransport.SendCommand(cmd.ID, args)
	}
}

// GetCommandByName retrieves a command by name.
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Global reset handler (set by target-specific code).
var globalResetHandler func()

// resetPending is set when a reset command is received. The actual reset
// happens in the main loop after the ACK is sent.
var resetPending uint32 // atomic bool

// SetResetHandler sets the platform-specific reset handler.
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// CheckPendingReset checks if a reset was requested and executes it. Should
// be called from the main loop after all pending messages are sent.
func CheckPendingReset() {
	if atomic.LoadUint32(&resetPending) != 0 {
		if globalResetHandler != nil {
			globalResetHandler()
			// Should never return - reset handler should reset the MCU
		}
	}
}

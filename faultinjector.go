package netdicom

// faultInjectorAction tells sendPDU what a FaultInjector wants done after
// observing an outgoing PDU.
type faultInjectorAction int

const (
	faultInjectorContinue    faultInjectorAction = iota
	faultInjectorDisconnect                      // close the connection instead of writing
)

// FaultInjector lets tests observe and perturb the state machine: every PDU
// about to be written is offered to onSend, and every state transition is
// reported to onStateTransition. Production associations run with a nil
// FaultInjector.
type FaultInjector interface {
	onSend(data []byte) faultInjectorAction
	onStateTransition(from stateType, event *stateEvent, action *stateAction, to stateType)
	String() string
}

// nopFaultInjector implements FaultInjector as a no-op; it is swapped out by
// tests that need to force a disconnect or record the transition history.
type nopFaultInjector struct{}

func (nopFaultInjector) onSend(data []byte) faultInjectorAction { return faultInjectorContinue }
func (nopFaultInjector) onStateTransition(stateType, *stateEvent, *stateAction, stateType) {}
func (nopFaultInjector) String() string                         { return "nopFaultInjector" }

var userFaultInjector FaultInjector
var providerFaultInjector FaultInjector

// getUserFaultInjector returns the FaultInjector to attach to the next
// service-user state machine. Tests set userFaultInjector directly; nil
// means run unperturbed.
func getUserFaultInjector() FaultInjector {
	return userFaultInjector
}

// getProviderFaultInjector is the acceptor-side counterpart of
// getUserFaultInjector.
func getProviderFaultInjector() FaultInjector {
	return providerFaultInjector
}

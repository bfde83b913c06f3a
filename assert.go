package netdicom

// doassert panics if cond is false. It marks invariants that the state
// machine and context manager rely on internally; a failure here means the
// caller violated the wire protocol's own preconditions, not a recoverable
// runtime error.
func doassert(cond bool) {
	if !cond {
		panic("dicom.assert: assertion failed")
	}
}

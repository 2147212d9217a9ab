package circuits

// Partition is one maximal contiguous run of operations that share a
// predicate value. The sub-circuit keeps the parent circuit's qubit
// count so every partition sees a consistent qubit envelope.
type Partition struct {
	Matches bool
	Circuit *Circuit
}

// Split partitions a circuit into maximal contiguous runs classified by
// the predicate, preserving operation order. Concatenating the runs in
// order reconstructs the original operation sequence. An empty circuit
// yields no partitions. The source circuit is never modified, so Split
// can be called repeatedly over the same input. A panicking predicate
// propagates to the caller.
func Split(c *Circuit, predicate func(Operation) bool) []Partition {
	var out []Partition
	var buffer []Operation
	currentFlag := false

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		sub := &Circuit{operations: buffer, nQubits: c.nQubits}
		out = append(out, Partition{Matches: currentFlag, Circuit: sub})
		buffer = nil
	}

	for _, op := range c.operations {
		flag := predicate(op)
		if flag != currentFlag {
			flush()
			currentFlag = flag
		}
		buffer = append(buffer, op)
	}
	flush()

	return out
}

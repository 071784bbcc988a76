/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

// The engine's execution state is an explicit value rather than implicit
// loop position, so the resume logic can be exercised without any
// orchestration infrastructure. An invocation starts discovering, moves to
// processing with an ordered provider queue, and ends done or failed.
// Suspending on the time budget is not a distinct state: the processing
// cursor is serialized into the continuation token and the next invocation
// rebuilds the same state from it.

type stateKind int

const (
	stateDiscovering stateKind = iota
	stateProcessing
	stateDone
	stateFailed
)

type state struct {
	kind stateKind
	// queue holds the providers still to process, in sorted order. The head
	// is the current cursor.
	queue  []string
	reason string
}

func discoveringState() state {
	return state{kind: stateDiscovering}
}

func processingState(queue []string) state {
	if len(queue) == 0 {
		return doneState()
	}
	return state{kind: stateProcessing, queue: queue}
}

func doneState() state {
	return state{kind: stateDone}
}

func failedState(reason string) state {
	return state{kind: stateFailed, reason: reason}
}

// current returns the provider at the cursor.
func (s state) current() (string, bool) {
	if s.kind != stateProcessing || len(s.queue) == 0 {
		return "", false
	}
	return s.queue[0], true
}

// advance pops the cursor provider; an exhausted queue transitions to done.
func (s state) advance() state {
	if s.kind != stateProcessing {
		return s
	}
	return processingState(s.queue[1:])
}

func (s state) remaining() int {
	return len(s.queue)
}

func (s state) String() string {
	switch s.kind {
	case stateDiscovering:
		return "discovering"
	case stateProcessing:
		return "processing"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

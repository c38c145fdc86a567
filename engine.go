package groupkex

import (
	"fmt"
	"sync"
)

// Engine is one participant's instance of the cycle key-agreement state
// machine (spec.md §2). It is safe for concurrent use: public methods
// serialize on an internal mutex, which is stricter than spec.md §5's
// "surrounding runtime serializes calls" contract but never violates it.
// The one operation that legitimately runs outside the lock is key
// derivation, the sole asynchronous suspension point (see ripeness.go's
// tryAdvanceX and completeDerivation below).
type Engine struct {
	mu sync.Mutex

	ka   KeyAgreement
	sink Sink

	myID    ParticipantID
	myIDSet bool
	roster  roster

	cycles map[ParticipantID]*cycleRecord

	// completedCounters tracks, per initiator id, the highest counter
	// whose cycle has already been derived and removed. It lets Deliver
	// distinguish "join an in-progress cycle" (spec.md §4.3, rule 1) from
	// a stale retransmission for a cycle that already finished and was
	// deleted (spec.md §4.3's last paragraph, and invariant 3: a
	// completed cycle's derivation "cannot be re-entered"). spec.md
	// doesn't spell out how an engine tells these two cases apart since
	// it leaves message-layer replay protection largely out of scope;
	// this is the minimal bookkeeping needed to honor invariant 3
	// without reviving a deleted record. See DESIGN.md.
	completedCounters map[ParticipantID]uint64

	step Step

	key         []byte
	previousKey []byte
	keyID       ParticipantID
	keyCounter  uint64

	myCounter uint64

	onStepChange StepChangeFunc
	onError      func(error)
	cbQueue      []func()
}

// NewEngine constructs an Engine. ka and sink are required collaborators;
// onStepChange may be nil if the caller doesn't need step notifications.
func NewEngine(ka KeyAgreement, sink Sink, onStepChange StepChangeFunc) *Engine {
	return &Engine{
		ka:                ka,
		sink:              sink,
		cycles:            make(map[ParticipantID]*cycleRecord),
		completedCounters: make(map[ParticipantID]uint64),
		onStepChange:      onStepChange,
	}
}

// withLock runs fn with e.mu held, then fires any step-change and error
// callbacks queued during fn without the lock held.
func (e *Engine) withLock(fn func() error) error {
	e.mu.Lock()
	err := fn()
	cbs := e.cbQueue
	e.cbQueue = nil
	e.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
	return err
}

// SetMyID is one-shot: the first call records my_id and adds it to the
// roster; subsequent calls are no-ops, per spec.md §4.1.
func (e *Engine) SetMyID(id ParticipantID) {
	_ = e.withLock(func() error {
		if e.myIDSet {
			return nil
		}
		e.myIDSet = true
		e.myID = id
		e.roster.add(id)
		return nil
	})
}

// AddMember inserts id into the roster and re-checks ripeness for every
// in-flight cycle, per spec.md §4.1/§4.4. A cryptographic failure during
// the re-check is reported to the OnError callback.
func (e *Engine) AddMember(id ParticipantID) {
	_ = e.withLock(func() error {
		e.roster.add(id)
		if err := e.recheckRipeness(); err != nil && e.onError != nil {
			cb := e.onError
			e.cbQueue = append(e.cbQueue, func() { cb(err) })
		}
		return nil
	})
}

// DeleteMember removes id from the roster, if present, and re-checks
// ripeness for every in-flight cycle, per spec.md §4.1/§4.4. A
// cryptographic failure during the re-check is reported to the OnError
// callback.
func (e *Engine) DeleteMember(id ParticipantID) {
	_ = e.withLock(func() error {
		e.roster.delete(id)
		if err := e.recheckRipeness(); err != nil && e.onError != nil {
			cb := e.onError
			e.cbQueue = append(e.cbQueue, func() { cb(err) })
		}
		return nil
	})
}

// OnError registers a callback for the errors no public method can return:
// asynchronous key-derivation failures, which surface after the triggering
// method has already returned (spec.md §5), and cryptographic failures
// during the ripeness re-check run by AddMember and DeleteMember. Like
// step-change callbacks, it is never invoked with the engine's lock held.
func (e *Engine) OnError(f func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onError = f
}

// IsInitiator reports whether this participant is currently the elected
// initiator: the smallest id in the local roster (spec.md §3).
func (e *Engine) IsInitiator() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return isInitiator(e.myID, &e.roster)
}

// Step returns the engine's current coarse phase.
func (e *Engine) Step() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Key returns the current session key, or nil if no cycle has completed
// yet.
func (e *Engine) Key() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}

// PreviousKey returns the key in effect before the most recent rotation,
// or nil if there has been at most one.
func (e *Engine) PreviousKey() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previousKey
}

// Start initiates a new cycle. It is only valid for the elected initiator
// with a roster of at least two members; spec.md §4.2 classifies both
// calling Start as a non-initiator and starting the same counter twice as
// programming errors, so both panic rather than returning an error.
func (e *Engine) Start() error {
	return e.withLock(func() error {
		if !isInitiator(e.myID, &e.roster) {
			panic("groupkex: Start called by a non-initiator")
		}
		if e.roster.size() < 2 {
			panic("groupkex: Start called with fewer than two roster members")
		}

		r, err := e.ka.GenerateR()
		if err != nil {
			return cryptoError("GenerateR", err)
		}
		z, err := e.ka.ComputeZ(r)
		if err != nil {
			return cryptoError("ComputeZ", err)
		}

		e.myCounter++
		counter := e.myCounter

		if existing, ok := e.cycles[e.myID]; ok && existing.counter == counter {
			panic("groupkex: Start called twice with the same counter")
		}

		// members is a sorted snapshot of the roster; the initiator's
		// own id is always e.roster.min(), i.e. index 0.
		members := append([]ParticipantID(nil), e.roster.ids...)

		rec := newCycleRecord(e.myID, counter, members, r)
		rec.setZ(0, z)
		e.cycles[e.myID] = rec

		if err := e.sink.Send(OutboundMessage{
			Initiator: CycleHeader{ID: e.myID, Counter: counter, Members: members},
			Z:         z,
		}); err != nil {
			return cryptoError("Sink.Send", err)
		}

		e.setStep(WaitingZ)
		return nil
	})
}

// Deliver ingests one inbound protocol message, per spec.md §4.3.
func (e *Engine) Deliver(msg InboundMessage) error {
	return e.withLock(func() error {
		id, counter := msg.Initiator.ID, msg.Initiator.Counter

		rec, ok := e.cycles[id]
		switch {
		case !ok:
			if counter <= e.completedCounters[id] {
				// Already derived and removed; the payload has no
				// home (spec.md §4.3's closing paragraph).
				return nil
			}
			newRec, err := e.createCycleRecord(msg.Initiator)
			if err != nil {
				return err
			}
			if newRec == nil {
				// We aren't among the declared members; nothing to do.
				return nil
			}
			e.cycles[id] = newRec
			rec = newRec
		case rec.counter < counter:
			newRec, err := e.createCycleRecord(msg.Initiator)
			if err != nil {
				return err
			}
			if newRec == nil {
				return nil
			}
			e.cycles[id] = newRec
			rec = newRec
		}

		idx, found := rec.indexOf(msg.SenderID)
		if !found {
			panic(fmt.Sprintf(
				"groupkex: message from sender %d is not a declared member of cycle (initiator=%d, counter=%d)",
				msg.SenderID, rec.id, rec.counter))
		}

		switch {
		case msg.Z != nil:
			rec.setZ(idx, msg.Z)
			return e.tryAdvanceZ(rec)
		case msg.X != nil:
			rec.setX(idx, msg.X)
			return e.tryAdvanceX(rec)
		default:
			return ErrNoPayload
		}
	})
}

// createCycleRecord implements the "join an in-progress cycle" path of
// spec.md §4.3's rule 1: allocate a local r, compute this participant's
// Z, seed zArray at this participant's declared position, and broadcast
// the Z. It returns (nil, nil) if this participant isn't among the
// declared members, in which case there is no local role to play.
func (e *Engine) createCycleRecord(hdr CycleHeader) (*cycleRecord, error) {
	rec := newCycleRecord(hdr.ID, hdr.Counter, hdr.Members, nil)
	myIdx, ok := rec.indexOf(e.myID)
	if !ok {
		return nil, nil
	}

	r, err := e.ka.GenerateR()
	if err != nil {
		return nil, cryptoError("GenerateR", err)
	}
	z, err := e.ka.ComputeZ(r)
	if err != nil {
		return nil, cryptoError("ComputeZ", err)
	}
	rec.r = r
	rec.setZ(myIdx, z)

	if err := e.sink.Send(OutboundMessage{Initiator: hdr, Z: z}); err != nil {
		return nil, cryptoError("Sink.Send", err)
	}
	e.setStep(WaitingZ)

	return rec, nil
}

// completeDerivation finishes the X-ripeness transition of ripeness.go's
// tryAdvanceX once the asynchronous key derivation for (id, counter)
// resolves. If the record has since been superseded or is otherwise gone,
// the result is discarded: derivation completion for a cycle no longer of
// interest is not an error, just moot.
func (e *Engine) completeDerivation(id ParticipantID, counter uint64, res KeyResult) {
	_ = e.withLock(func() error {
		rec, ok := e.cycles[id]
		if !ok || rec.counter != counter || !rec.deriving {
			return nil
		}

		if res.Err != nil {
			// Cryptographic failure: fatal to this cycle only. Drop the
			// record so a future, newer counter can try again; the
			// instance as a whole keeps running.
			delete(e.cycles, id)
			err := cryptoError("DeriveKey", res.Err)
			if e.onError != nil {
				cb := e.onError
				e.cbQueue = append(e.cbQueue, func() { cb(err) })
			}
			return err
		}

		if e.key != nil {
			e.previousKey = e.key
		}
		e.key = res.Key
		e.keyID = id
		e.keyCounter = counter
		if counter > e.completedCounters[id] {
			e.completedCounters[id] = counter
		}

		delete(e.cycles, id)
		e.setStep(Ready)
		return nil
	})
}

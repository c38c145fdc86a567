package groupkex

// tryAdvanceZ implements spec.md §4.4's Z-ripeness check and the
// WAITING_Z -> WAITING_X transition. It is a silent no-op (a transient
// stall, per spec.md §7) unless every precondition holds:
//
//   - the local roster is at least as large as the declared members,
//   - the local roster contains every declared member,
//   - every slot of zArray is filled.
//
// After broadcasting its own X it runs tryAdvanceX on the same record, since
// every other X may already have arrived while this one was held back.
//
// It must be called with e.mu held.
func (e *Engine) tryAdvanceZ(rec *cycleRecord) error {
	if rec.deriving {
		return nil
	}
	if e.roster.size() < rec.n() {
		return nil
	}
	if !e.roster.supersetOf(rec.members) {
		return nil
	}
	if !rec.zComplete() {
		return nil
	}

	i, ok := rec.indexOf(e.myID)
	if !ok {
		return nil
	}
	n := rec.n()

	x, err := e.ka.ComputeX(rec.r, rec.zArray[right(i, n)], rec.zArray[left(i, n)])
	if err != nil {
		return cryptoError("ComputeX", err)
	}
	rec.setX(i, x)

	if err := e.sink.Send(OutboundMessage{
		Initiator: CycleHeader{ID: rec.id, Counter: rec.counter, Members: rec.members},
		X:         x,
	}); err != nil {
		return cryptoError("Sink.Send", err)
	}

	e.setStep(WaitingX)
	return e.tryAdvanceX(rec)
}

// tryAdvanceX implements spec.md §4.4's X-ripeness check and the
// WAITING_X -> READY transition. Preconditions mirror tryAdvanceZ, plus
// xArray must be complete. On success it kicks off asynchronous key
// derivation (spec.md §5) and marks rec.deriving; the record is removed
// from the cycle table only once derivation completes, by
// completeDerivation.
//
// Must be called with e.mu held.
func (e *Engine) tryAdvanceX(rec *cycleRecord) error {
	if rec.deriving {
		return nil
	}
	if e.roster.size() < rec.n() {
		return nil
	}
	if !e.roster.supersetOf(rec.members) {
		return nil
	}
	if !rec.xComplete() {
		return nil
	}

	i, ok := rec.indexOf(e.myID)
	if !ok {
		return nil
	}
	n := rec.n()
	zLeft := rec.zArray[left(i, n)]

	secret, err := e.ka.ComputeSharedSecret(rec.r, i, zLeft, rec.xArray)
	if err != nil {
		return cryptoError("ComputeSharedSecret", err)
	}

	rec.deriving = true
	ch := e.ka.DeriveKey(secret, rec.members)
	id, counter := rec.id, rec.counter
	go func() {
		res := <-ch
		e.completeDerivation(id, counter, res)
	}()

	return nil
}

// recheckRipeness re-runs the ripeness check appropriate to the current
// step for every record in the cycle table. spec.md §4.4 calls for this
// whenever the roster changes and this participant is not the initiator
// (a late-arriving member can unstall a cycle that was blocked on the
// "roster ⊇ declared members" guard).
//
// Must be called with e.mu held. The first error encountered (a
// cryptographic failure) is returned after the remaining records have
// still been attempted, so one failing cycle doesn't mask progress on
// others.
func (e *Engine) recheckRipeness() error {
	if isInitiator(e.myID, &e.roster) {
		return nil
	}
	if e.step != WaitingZ && e.step != WaitingX {
		return nil
	}

	var firstErr error
	for _, rec := range e.cycles {
		var err error
		switch e.step {
		case WaitingZ:
			err = e.tryAdvanceZ(rec)
		case WaitingX:
			err = e.tryAdvanceX(rec)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

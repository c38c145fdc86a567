package groupkex

import "sort"

// roster is the locally-observed membership: a sorted, unique slice of
// participant ids. It mirrors the shape of the teacher's Group/Member
// bookkeeping (group.go's AddMember/sorted lookups), but carries bare ids
// instead of full Member records since the engine has no use for identity
// or ephemeral keys (peer authentication is a Non-goal; see spec.md §1).
type roster struct {
	ids []ParticipantID
}

func (r *roster) has(id ParticipantID) bool {
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= id })
	return i < len(r.ids) && r.ids[i] == id
}

func (r *roster) add(id ParticipantID) bool {
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= id })
	if i < len(r.ids) && r.ids[i] == id {
		return false
	}
	r.ids = append(r.ids, 0)
	copy(r.ids[i+1:], r.ids[i:])
	r.ids[i] = id
	return true
}

func (r *roster) delete(id ParticipantID) bool {
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= id })
	if i >= len(r.ids) || r.ids[i] != id {
		return false
	}
	r.ids = append(r.ids[:i], r.ids[i+1:]...)
	return true
}

// min returns the smallest id in the roster. The caller must ensure the
// roster is non-empty.
func (r *roster) min() ParticipantID {
	return r.ids[0]
}

func (r *roster) size() int {
	return len(r.ids)
}

// supersetOf reports whether every id in members is present in the
// roster. This is the "roster ⊇ declared members" guard from spec.md §4.4.
func (r *roster) supersetOf(members []ParticipantID) bool {
	for _, id := range members {
		if !r.has(id) {
			return false
		}
	}
	return true
}

// isInitiator is a pure function of (myID, roster) per spec.md §3's
// invariant 5: the smallest id in the roster is the sole initiator.
func isInitiator(myID ParticipantID, r *roster) bool {
	if r.size() == 0 {
		return false
	}
	return myID == r.min()
}

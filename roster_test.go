package groupkex

import "testing"

func TestRosterAddIsSortedAndUnique(t *testing.T) {
	var r roster

	r.add(3)
	r.add(1)
	r.add(2)
	if ok := r.add(2); ok {
		t.Fatalf("add(2) a second time should report false")
	}

	want := []ParticipantID{1, 2, 3}
	if len(r.ids) != len(want) {
		t.Fatalf("roster has %d members, want %d", len(r.ids), len(want))
	}
	for i, id := range want {
		if r.ids[i] != id {
			t.Fatalf("roster.ids[%d] = %d, want %d", i, r.ids[i], id)
		}
	}
}

func TestRosterDelete(t *testing.T) {
	var r roster
	r.add(1)
	r.add(2)
	r.add(3)

	if !r.delete(2) {
		t.Fatalf("delete(2) should report true")
	}
	if r.has(2) {
		t.Fatalf("roster should no longer have 2")
	}
	if r.delete(2) {
		t.Fatalf("deleting an absent member should report false")
	}
	if r.size() != 2 {
		t.Fatalf("roster size = %d, want 2", r.size())
	}
}

func TestRosterSupersetOf(t *testing.T) {
	var r roster
	r.add(1)
	r.add(3)

	if r.supersetOf([]ParticipantID{1, 3}) != true {
		t.Fatalf("roster should be a superset of its own members")
	}
	if r.supersetOf([]ParticipantID{1, 2, 3}) {
		t.Fatalf("roster should not be a superset when a member is missing")
	}
}

func TestIsInitiator(t *testing.T) {
	var r roster
	if isInitiator(1, &r) {
		t.Fatalf("an empty roster should never elect an initiator")
	}

	r.add(5)
	r.add(2)
	r.add(9)

	if !isInitiator(2, &r) {
		t.Fatalf("the smallest id in the roster should be the initiator")
	}
	if isInitiator(5, &r) {
		t.Fatalf("a non-smallest id should not be the initiator")
	}
}

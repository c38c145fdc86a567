package main

import (
	"fmt"
	"sync"
	"time"

	groupkex "github.com/openpaas-ng/mute-crypto"
	"github.com/openpaas-ng/mute-crypto/internal/bdcrypto"
	"github.com/openpaas-ng/mute-crypto/internal/jsonutl"

	"github.com/syslab-wm/mu"
)

// bus is an in-memory broadcast transport: every participant's Sink
// forwards through it to every other participant's Engine. It plays the
// role the teacher's file-based message exchange plays in setup_group and
// process_setup_message, collapsed into a single process since there's no
// multi-host transport to drive here.
type bus struct {
	mu           sync.Mutex
	participants []*participant
}

func (b *bus) register(p *participant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.participants = append(b.participants, p)
}

func (b *bus) broadcast(sender groupkex.ParticipantID, msg groupkex.OutboundMessage) error {
	b.mu.Lock()
	recipients := append([]*participant(nil), b.participants...)
	b.mu.Unlock()

	for _, p := range recipients {
		if p.id == sender {
			continue
		}
		in := groupkex.InboundMessage{
			Initiator: msg.Initiator,
			SenderID:  sender,
			Z:         msg.Z,
			X:         msg.X,
		}
		if err := p.engine.Deliver(in); err != nil {
			return fmt.Errorf("delivering to participant %d: %w", p.id, err)
		}
	}
	return nil
}

type memberSink struct {
	senderID groupkex.ParticipantID
	bus      *bus
}

func (s *memberSink) Send(msg groupkex.OutboundMessage) error {
	return s.bus.broadcast(s.senderID, msg)
}

type participant struct {
	id     groupkex.ParticipantID
	name   string
	engine *groupkex.Engine
	ready  chan struct{}
}

func newParticipant(id groupkex.ParticipantID, name string, b *bus, ka groupkex.KeyAgreement) *participant {
	p := &participant{id: id, name: name, ready: make(chan struct{}, 1)}

	onStepChange := func(step groupkex.Step) {
		if step == groupkex.Ready {
			select {
			case p.ready <- struct{}{}:
			default:
			}
		}
	}

	p.engine = groupkex.NewEngine(ka, &memberSink{senderID: id, bus: b}, onStepChange)
	p.engine.SetMyID(id)
	return p
}

func waitReady(ps []*participant, timeout time.Duration) error {
	deadline := time.After(timeout)
	for _, p := range ps {
		select {
		case <-p.ready:
		case <-deadline:
			return fmt.Errorf("timed out waiting for participant %d to become ready", p.id)
		}
	}
	return nil
}

type sessionResult struct {
	Participants []groupkex.ParticipantID `json:"participants"`
	Key          []byte                   `json:"key"`
	PreviousKey  []byte                   `json:"previous_key,omitempty"`
}

func main() {
	opts := parseOptions()

	b := &bus{}
	ka := bdcrypto.New(0)
	defer ka.Close()

	// The roster comes either from a -group config file, loaded with the
	// same scanner/validate/accumulate shape the teacher's group.go uses
	// for its own member config file, or from -n synthetic participants.
	var entries []rosterEntry
	if opts.group != "" {
		entries = loadRosterFromFile(opts.group)
	} else {
		entries = make([]rosterEntry, opts.n)
		for i := 0; i < opts.n; i++ {
			entries[i] = rosterEntry{name: fmt.Sprintf("p%d", i+1), id: groupkex.ParticipantID(i + 1)}
		}
	}

	participants := make([]*participant, 0, len(entries))
	for _, entry := range entries {
		p := newParticipant(entry.id, entry.name, b, ka)
		participants = append(participants, p)
		b.register(p)
	}

	initiator := participants[0]
	for _, p := range participants {
		if p.id < initiator.id {
			initiator = p
		}
	}
	fmt.Printf("participant %d (%s) is the initiator\n", initiator.id, initiator.name)

	// When -churn is set, one non-initiator member starts out missing
	// another non-initiator member from its own roster, so it stalls on
	// the "roster ⊇ declared members" ripeness guard once the cycle
	// reaches it, even though the initiator declared a full member set.
	// The whole cycle stalls with it, since nobody can reach an
	// X-complete record while one member never broadcasts its X.
	// AddMember below fixes the gap and re-checks ripeness, unstalling
	// the cycle.
	var incomplete, withheld *participant
	if opts.churn {
		for _, p := range participants {
			if p.id == initiator.id {
				continue
			}
			if incomplete == nil {
				incomplete = p
			} else if withheld == nil {
				withheld = p
			}
		}
		if incomplete == nil || withheld == nil {
			incomplete, withheld = nil, nil
		}
	}

	for _, a := range participants {
		for _, c := range participants {
			if a.id == c.id {
				continue
			}
			if incomplete != nil && a.id == incomplete.id && c.id == withheld.id {
				continue
			}
			a.engine.AddMember(c.id)
		}
	}

	if err := initiator.engine.Start(); err != nil {
		mu.Fatalf("error: Start: %v", err)
	}

	if incomplete != nil {
		fmt.Printf("participant %d was missing participant %d from its roster; cycle stalled\n",
			incomplete.id, withheld.id)
		fmt.Printf("adding participant %d to participant %d's roster\n", withheld.id, incomplete.id)
		incomplete.engine.AddMember(withheld.id)
	}

	if err := waitReady(participants, 10*time.Second); err != nil {
		mu.Fatalf("error: %v", err)
	}

	if opts.rotate {
		if err := initiator.engine.Start(); err != nil {
			mu.Fatalf("error: second Start: %v", err)
		}
		if err := waitReady(participants, 10*time.Second); err != nil {
			mu.Fatalf("error: %v", err)
		}
	}

	ids := make([]groupkex.ParticipantID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.id)
	}

	result := sessionResult{
		Participants: ids,
		Key:          initiator.engine.Key(),
		PreviousKey:  initiator.engine.PreviousKey(),
	}
	jsonutl.Encode(opts.out, &result)

	fmt.Printf("session key: %x\n", result.Key)
	fmt.Printf("wrote %s\n", opts.out)
}

package statemachine_test

import (
	"context"
	"strconv"

	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

type order struct {
	Amount int
	Note   string
}

const (
	submitted statemachine.State = "submitted"
	approved  statemachine.State = "approved"
	denied    statemachine.State = "denied"
	paid      statemachine.State = "paid"
)

// approvalTable is the definition shared by most tests.
func approvalTable() *statemachine.Table[order] {
	return statemachine.NewTable[order](
		[]statemachine.State{submitted, approved, denied, paid},
		[]statemachine.Transition{
			{Trigger: "approve", Sources: []statemachine.State{submitted}, Destination: approved},
			{Trigger: "deny", Sources: []statemachine.State{submitted, approved}, Destination: denied},
			{Trigger: "pay", Sources: []statemachine.State{approved}, Destination: paid, Guards: []string{"has_amount", "under_limit"}},
		},
	).
		SetGuard("has_amount", func(_ context.Context, m *statemachine.Machine[order], _ statemachine.Event) bool {
			return m.Data().Amount > 0
		}).
		SetGuard("under_limit", func(_ context.Context, m *statemachine.Machine[order], _ statemachine.Event) bool {
			return m.Data().Amount <= 1000
		})
}

// recorder collects the names of executed steps.
type recorder struct {
	steps []string
}

func (r *recorder) hook(name string, err error) statemachine.Hook[order] {
	return func(_ context.Context, _ *statemachine.Machine[order], _ statemachine.Event) error {
		r.steps = append(r.steps, name)
		return err
	}
}

func (r *recorder) guard(name string, result bool) statemachine.Guard[order] {
	return func(_ context.Context, _ *statemachine.Machine[order], _ statemachine.Event) bool {
		r.steps = append(r.steps, "guard:"+name)
		return result
	}
}

type storedSnapshot struct {
	record     statemachine.Record[order]
	previousID string
	trigger    string
	phase      statemachine.Phase
}

// seqPersister assigns sequential ids starting at 1.
type seqPersister struct {
	next        int
	snapshots   map[string]storedSnapshot
	order       []string
	storeErr    error
	retrieveErr error
	fixedID     *string
	rec         *recorder
}

func newSeqPersister() *seqPersister {
	return &seqPersister{snapshots: make(map[string]storedSnapshot)}
}

func (p *seqPersister) Store(_ context.Context, rec statemachine.Record[order], trigger string, phase statemachine.Phase) (string, error) {
	if p.rec != nil {
		p.rec.steps = append(p.rec.steps, "store:"+string(phase))
	}
	if p.storeErr != nil {
		return "", p.storeErr
	}
	if p.fixedID != nil {
		return *p.fixedID, nil
	}
	p.next++
	id := strconv.Itoa(p.next)
	p.snapshots[id] = storedSnapshot{
		record:     rec,
		previousID: rec.PersistentID,
		trigger:    trigger,
		phase:      phase,
	}
	p.order = append(p.order, id)
	return id, nil
}

func (p *seqPersister) Retrieve(_ context.Context, id string) (statemachine.Record[order], bool, error) {
	if p.retrieveErr != nil {
		return statemachine.Record[order]{}, false, p.retrieveErr
	}
	s, ok := p.snapshots[id]
	return s.record, ok, nil
}

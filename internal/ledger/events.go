package ledger

// EventType identifies an observable ledger side effect.
type EventType uint8

const (
	// EventDeposit is emitted when a deposit entry is recorded.
	EventDeposit EventType = 1

	// EventWithdrawal is emitted when a signature-authorized withdrawal completes.
	EventWithdrawal EventType = 2
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventDeposit:
		return "deposit"
	case EventWithdrawal:
		return "withdrawal"
	default:
		return "unknown"
	}
}

// Event is an observable ledger side effect.
// Deposit events carry the full asset coordinates; withdrawal events carry
// the withdrawer and the deposit id.
type Event struct {
	Type       EventType     // Type is the event kind
	Actor      Identity      // Actor is the depositor or withdrawer
	DepositID  uint64        // DepositID is the affected table entry
	Collection CollectionRef // Collection is set for deposit events
	ItemID     uint64        // ItemID is set for deposit events
}

// EventSink receives committed ledger events.
type EventSink interface {
	Emit(ev Event)
}

// FanOut returns a sink that forwards each event to all given sinks.
func FanOut(sinks ...EventSink) EventSink {
	return fanOut(sinks)
}

type fanOut []EventSink

func (f fanOut) Emit(ev Event) {
	for _, s := range f {
		s.Emit(ev)
	}
}

// discardSink drops events. Used when no sink is configured.
type discardSink struct{}

func (discardSink) Emit(Event) {}

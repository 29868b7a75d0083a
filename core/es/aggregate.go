package es

type (
	// Event is an immutable fact. An event of version V applies to an aggregate at
	// version V and moves it to V+1. Version 0 is the init event.
	Event interface {
		Handle() Handle
		Version() uint64
	}

	// Command proposes a change to one aggregate. Version returns the expected
	// aggregate version, if the caller wants optimistic concurrency control.
	Command interface {
		Handle() Handle
		Version() (uint64, bool)
		// Label classifies the command in history and archival filters.
		Label() string
		// Actor names who issued the command.
		Actor() string
	}

	// Aggregate is implemented by the domain type, usually on a pointer receiver.
	// Version is 1 right after init and grows by one for every applied event.
	//
	// ProcessCommand must not modify the receiver. Apply is only ever called on
	// a value the store owns exclusively, see Clone.
	Aggregate[A any, C Command, E Event] interface {
		Version() uint64
		Apply(E)
		ProcessCommand(C) ([]E, error)
		// Clone returns a deep copy that can be modified without affecting the receiver.
		Clone() A
	}

	// InitFunc builds a version 1 aggregate from its init event.
	InitFunc[A any, I Event] func(I) (A, error)

	// Listener is called once per committed event with the aggregate after the
	// full command has been applied. The store's write lock is held, so a
	// listener must not call back into the store.
	Listener[A any, E Event] interface {
		Listen(agg A, evt E)
	}

	ListenerFunc[A any, E Event] func(agg A, evt E)
)

func (f ListenerFunc[A, E]) Listen(agg A, evt E) { f(agg, evt) }

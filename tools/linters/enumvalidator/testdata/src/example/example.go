package example

type EventStatus string

const (
	EventStatusReceived  EventStatus = "received"
	EventStatusCompleted EventStatus = "completed"
)

type EventKind string

type ProcessorRunStatus string

const (
	ProcessorRunStatusSucceeded ProcessorRunStatus = "succeeded"
)

type CredentialSource string

const (
	CredentialSourceShared CredentialSource = "shared"
)

type Event struct {
	Kind   EventKind
	Status EventStatus
}

type ProcessorRun struct {
	Status ProcessorRunStatus
}

type CredentialSet struct {
	Source CredentialSource
}

func bad() {
	e := &Event{}
	e.Status = "done" // want "enum field Status assigned string literal"

	r := &ProcessorRun{}
	r.Status = "ok" // want "enum field Status assigned string literal"

	_ = CredentialSet{Source: "tenant"} // want "enum field Source assigned string literal"
}

func good() {
	e := &Event{}
	e.Status = EventStatusCompleted

	r := &ProcessorRun{Status: ProcessorRunStatusSucceeded}
	_ = r

	c := CredentialSet{Source: CredentialSourceShared}
	_ = c
}

func alsoGood() {
	// kinds are open-ended
	e := &Event{Kind: "push"}
	e.Kind = "ping"

	status := EventStatusReceived
	_ = Event{Status: status}
	_ = map[string]EventStatus{"a": EventStatusReceived}
}

package agent

// MessageKind selects how a progress message is presented.
type MessageKind int

const (
	// MessageAICall announces a request to the model.
	MessageAICall MessageKind = iota
	// MessageUnitTest reports a check against generated code or external URLs.
	MessageUnitTest
	// MessageIssue reports a problem that did not stop the stage.
	MessageIssue
)

func (k MessageKind) String() string {
	switch k {
	case MessageAICall:
		return "ai_call"
	case MessageUnitTest:
		return "unit_test"
	case MessageIssue:
		return "issue"
	default:
		return "unknown"
	}
}

// Observer receives progress messages from stages. Implementations must not block for long.
type Observer interface {
	Report(position string, kind MessageKind, message string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(position string, kind MessageKind, message string)

// Report calls f.
func (f ObserverFunc) Report(position string, kind MessageKind, message string) {
	f(position, kind, message)
}

type nopObserver struct{}

func (nopObserver) Report(string, MessageKind, string) {}

// NopObserver discards every message.
func NopObserver() Observer { return nopObserver{} }

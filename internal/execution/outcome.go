package execution

// Status is the execution half of an approval's terminal state.
type Status string

const (
	// StatusNotExecuted means no pipeline is registered for the action kind;
	// the approval is recorded but its effect needs manual follow-up.
	StatusNotExecuted Status = "not_executed"
	// StatusExecuted means the action's mutations committed.
	StatusExecuted Status = "executed"
	// StatusFailed means validation or a precondition rejected the action, or
	// a mutation could not complete; nothing was applied.
	StatusFailed Status = "failed"
)

// Outcome is the result of attempting to apply an approved action.
type Outcome struct {
	Status Status
	Error  string
}

// Failed reports whether the outcome carries an execution error.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

func executed() Outcome { return Outcome{Status: StatusExecuted} }

func failed(msg string) Outcome { return Outcome{Status: StatusFailed, Error: msg} }

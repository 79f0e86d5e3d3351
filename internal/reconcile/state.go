package reconcile

// State is the lifecycle position of one submit.
type State string

const (
	StateReceived   State = "received"
	StateValidating State = "validating"
	StateApplying   State = "applying"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}

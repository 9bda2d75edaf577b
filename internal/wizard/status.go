package wizard

// Status is the submission lifecycle of a form instance.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusIdle, StatusSubmitting, StatusSuccess, StatusError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the form stays in this status until it is reset or closed.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess
}

// Direction records which way the last navigation moved. Renderers use it to pick a transition.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

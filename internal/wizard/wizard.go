// Package wizard implements the linear multi-step form state machine shared by every lead form.
//
// A Definition describes a form variant (its steps, required fields and whether privacy consent is
// needed). A Machine applies user actions to a State. The package performs no IO: submitting is split
// into BeginSubmit and CompleteSubmit so the caller owns the store call in between.
package wizard

import (
	"errors"
	"strings"
)

// Form is the typed record behind one form variant.
type Form interface {
	SetField(name string, value string) error
	Value(name string) string
	// Summary is the label shown on the thank-you screen, e.g. the chosen package.
	Summary() string
}

// Seed carries values chosen before the dialog opened.
type Seed struct {
	Package string `json:"package,omitempty"`
}

type Step[F Form] struct {
	Name string
	// Fields drive the progress indicator of the step.
	Fields   []string
	Required []string
	// Optional fields are shown on the step without counting towards its progress.
	Optional []string
	Validate func(form F) []FieldError
}

type Definition[F Form] struct {
	Variant         string
	Steps           []Step[F]
	ConsentRequired bool
	New             func(seed Seed) F
}

func (d Definition[F]) TotalSteps() int {
	return len(d.Steps)
}

// FieldNames lists every field of the form once, in step order.
func (d Definition[F]) FieldNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, step := range d.Steps {
		for _, group := range [][]string{step.Fields, step.Required, step.Optional} {
			for _, name := range group {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
	return names
}

func (d Definition[F]) Check() error {
	if strings.TrimSpace(d.Variant) == "" {
		return errors.New("wizard variant is required")
	}
	if len(d.Steps) == 0 {
		return errors.New("wizard needs at least one step")
	}
	if d.New == nil {
		return errors.New("wizard form constructor is required")
	}
	return nil
}

type State[F Form] struct {
	Form            F            `json:"form"`
	Seed            Seed         `json:"seed"`
	Step            int          `json:"step"`
	Direction       Direction    `json:"direction"`
	ConsentAccepted bool         `json:"consent_accepted"`
	Status          Status       `json:"status"`
	Errors          []FieldError `json:"errors,omitempty"`
	Submitted       string       `json:"submitted,omitempty"`
}

type Machine[F Form] struct {
	definition Definition[F]
	state      *State[F]
}

// Start creates a fresh machine positioned on the first step.
func Start[F Form](definition Definition[F], seed Seed) *Machine[F] {
	machine := &Machine[F]{definition: definition, state: &State[F]{}}
	machine.state.Seed = seed
	machine.Reset()
	return machine
}

// Resume wraps a previously stored state after checking it is consistent with the definition.
func Resume[F Form](definition Definition[F], state *State[F]) (*Machine[F], error) {
	if state == nil {
		return nil, ErrInvalidState
	}
	if state.Step < 1 || state.Step > definition.TotalSteps() {
		return nil, ErrInvalidState
	}
	if !state.Status.IsValid() {
		return nil, ErrInvalidState
	}
	return &Machine[F]{definition: definition, state: state}, nil
}

func (m *Machine[F]) State() *State[F] {
	return m.state
}

func (m *Machine[F]) Definition() Definition[F] {
	return m.definition
}

func (m *Machine[F]) IsFinalStep() bool {
	return m.state.Step == m.definition.TotalSteps()
}

func (m *Machine[F]) SetField(name string, value string) error {
	if err := m.ensureEditable(); err != nil {
		return err
	}
	return m.state.Form.SetField(name, value)
}

func (m *Machine[F]) SetConsent(accepted bool) error {
	if err := m.ensureEditable(); err != nil {
		return err
	}
	m.state.ConsentAccepted = accepted
	return nil
}

// Next validates the current step and advances. On failure the step and direction are unchanged.
func (m *Machine[F]) Next() error {
	if err := m.ensureEditable(); err != nil {
		return err
	}
	if m.IsFinalStep() {
		return ErrAtLastStep
	}

	if fieldErrors := m.validateStep(m.state.Step); len(fieldErrors) > 0 {
		m.state.Errors = fieldErrors
		return &ValidationError{Fields: fieldErrors}
	}

	m.state.Errors = nil
	m.state.Step++
	m.state.Direction = Forward
	return nil
}

// Back moves one step back without validating.
func (m *Machine[F]) Back() error {
	if err := m.ensureEditable(); err != nil {
		return err
	}
	if m.state.Step <= 1 {
		return ErrAtFirstStep
	}

	m.state.Errors = nil
	m.state.Step--
	m.state.Direction = Backward
	return nil
}

// BeginSubmit checks every precondition of a submission and moves the state to submitting.
// It re-validates all steps so a record can never reach the store with a required field blank.
func (m *Machine[F]) BeginSubmit() error {
	switch m.state.Status {
	case StatusSubmitting:
		return ErrSubmissionInFlight
	case StatusSuccess:
		return ErrAlreadySubmitted
	}
	if !m.IsFinalStep() {
		return ErrNotFinalStep
	}

	fieldErrors := make([]FieldError, 0)
	for step := 1; step <= m.definition.TotalSteps(); step++ {
		fieldErrors = append(fieldErrors, m.validateStep(step)...)
	}
	if m.definition.ConsentRequired && !m.state.ConsentAccepted {
		fieldErrors = append(fieldErrors, FieldError{Field: ConsentField, Code: CodeRequired})
	}
	if len(fieldErrors) > 0 {
		m.state.Errors = fieldErrors
		return &ValidationError{Fields: fieldErrors}
	}

	m.state.Errors = nil
	m.state.Status = StatusSubmitting
	return nil
}

// CompleteSubmit records the outcome of the store write started by BeginSubmit.
// A failed write leaves the form on its final step so the user can retry.
// A successful write clears the fields but keeps the thank-you state until Reset.
func (m *Machine[F]) CompleteSubmit(storeErr error) bool {
	if m.state.Status != StatusSubmitting {
		return false
	}
	if storeErr != nil {
		m.state.Status = StatusError
		return true
	}

	m.state.Submitted = m.state.Form.Summary()
	m.state.Form = m.definition.New(m.state.Seed)
	m.state.ConsentAccepted = false
	m.state.Errors = nil
	m.state.Status = StatusSuccess
	return true
}

// Reset returns the machine to the initial values, keeping the seed.
func (m *Machine[F]) Reset() {
	m.state.Form = m.definition.New(m.state.Seed)
	m.state.Step = 1
	m.state.Direction = Forward
	m.state.ConsentAccepted = false
	m.state.Status = StatusIdle
	m.state.Errors = nil
	m.state.Submitted = ""
}

// Progress returns the fill of each step connector, between 0 and 1.
func (m *Machine[F]) Progress() []float64 {
	progress := make([]float64, m.definition.TotalSteps())
	for index, step := range m.definition.Steps {
		position := index + 1
		switch {
		case position < m.state.Step:
			progress[index] = 1
		case position == m.state.Step:
			progress[index] = m.stepCompletion(step)
		}
	}
	return progress
}

func (m *Machine[F]) stepCompletion(step Step[F]) float64 {
	if len(step.Fields) == 0 {
		return 0
	}
	filled := 0
	for _, field := range step.Fields {
		if strings.TrimSpace(m.state.Form.Value(field)) != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(step.Fields))
}

func (m *Machine[F]) validateStep(position int) []FieldError {
	step := m.definition.Steps[position-1]
	fieldErrors := make([]FieldError, 0)
	for _, field := range step.Required {
		if strings.TrimSpace(m.state.Form.Value(field)) == "" {
			fieldErrors = append(fieldErrors, FieldError{Field: field, Code: CodeRequired})
		}
	}
	if step.Validate != nil {
		fieldErrors = append(fieldErrors, step.Validate(m.state.Form)...)
	}
	return fieldErrors
}

func (m *Machine[F]) ensureEditable() error {
	switch m.state.Status {
	case StatusSubmitting:
		return ErrSubmissionInFlight
	case StatusSuccess:
		return ErrAlreadySubmitted
	default:
		return nil
	}
}

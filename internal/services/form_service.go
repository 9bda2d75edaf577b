package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dontwait/dontwait/internal/forms"
	"github.com/dontwait/dontwait/internal/sessions"
	"github.com/dontwait/dontwait/internal/store"
	"github.com/dontwait/dontwait/internal/wizard"
	"go.uber.org/zap"
)

const DefaultStoreTimeout = 10 * time.Second

// Submission describes one lead that reached the store.
type Submission struct {
	Variant string
	Table   string
	Row     store.Row
	Label   string
	At      time.Time
}

// SuccessHook runs once per successful submission, after the form state is saved.
type SuccessHook func(ctx context.Context, submission Submission)

// Input is one batch of user edits. A nil Consent leaves the checkbox untouched.
type Input struct {
	Fields  map[string]string
	Consent *bool
}

// FormView is the variant-independent snapshot handed to the presentation layer.
type FormView struct {
	Variant         string              `json:"variant"`
	Step            int                 `json:"step"`
	TotalSteps      int                 `json:"total_steps"`
	StepName        string              `json:"step_name"`
	Direction       wizard.Direction    `json:"direction"`
	Status          wizard.Status       `json:"status"`
	ConsentAccepted bool                `json:"consent_accepted"`
	ConsentRequired bool                `json:"consent_required"`
	Fields          map[string]string   `json:"fields"`
	Errors          []wizard.FieldError `json:"errors,omitempty"`
	Progress        []float64           `json:"progress"`
	Submitted       string              `json:"submitted,omitempty"`
	Seed            wizard.Seed         `json:"seed"`
}

func (v FormView) IsFinalStep() bool {
	return v.Step == v.TotalSteps
}

// FieldError returns the error code reported for field, or "".
func (v FormView) FieldError(field string) string {
	for _, fieldError := range v.Errors {
		if fieldError.Field == field {
			return fieldError.Code
		}
	}
	return ""
}

type FormServiceConfig struct {
	Sessions     sessions.Store
	Inserter     store.Inserter
	Logger       *zap.Logger
	StoreTimeout time.Duration
	Hooks        []SuccessHook
}

// FormService runs one wizard variant for many visitors. State lives in the session store;
// the only write to the lead store happens in Submit.
type FormService[F forms.Record] struct {
	definition   wizard.Definition[F]
	sessions     sessions.Store
	inserter     store.Inserter
	logger       *zap.Logger
	storeTimeout time.Duration
	hooks        []SuccessHook
	now          func() time.Time

	locks *keyLocks

	mu       sync.Mutex
	inflight map[string]*inflightWrite
}

type inflightWrite struct {
	cancel context.CancelFunc
}

func NewFormService[F forms.Record](definition wizard.Definition[F], config FormServiceConfig) (*FormService[F], error) {
	if err := definition.Check(); err != nil {
		return nil, err
	}
	if config.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if config.Inserter == nil {
		return nil, errors.New("lead store is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	return &FormService[F]{
		definition:   definition,
		sessions:     config.Sessions,
		inserter:     config.Inserter,
		logger:       logger.With(zap.String("form", definition.Variant)),
		storeTimeout: timeout,
		hooks:        append([]SuccessHook(nil), config.Hooks...),
		now:          time.Now,
		locks:        newKeyLocks(),
		inflight:     make(map[string]*inflightWrite),
	}, nil
}

func (s *FormService[F]) Variant() string {
	return s.definition.Variant
}

// OnSuccess registers an extra hook. It must be called before the service handles traffic.
func (s *FormService[F]) OnSuccess(hook SuccessHook) {
	if hook != nil {
		s.hooks = append(s.hooks, hook)
	}
}

// Open starts a fresh form for id, discarding any previous state and abandoning its in-flight write.
func (s *FormService[F]) Open(ctx context.Context, id string, seed wizard.Seed) (FormView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	s.abandonInflight(id)
	machine := wizard.Start(s.definition, seed)
	if err := s.save(ctx, id, machine); err != nil {
		return FormView{}, err
	}
	return s.view(machine), nil
}

func (s *FormService[F]) Get(ctx context.Context, id string) (FormView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	machine, err := s.load(ctx, id)
	if err != nil {
		return FormView{}, err
	}
	return s.view(machine), nil
}

// Apply records field edits and the consent checkbox without navigating.
func (s *FormService[F]) Apply(ctx context.Context, id string, input Input) (FormView, error) {
	return s.mutate(ctx, id, input, nil)
}

// Next applies input and advances when the current step validates.
// A validation failure is saved so the inline errors survive a reload.
func (s *FormService[F]) Next(ctx context.Context, id string, input Input) (FormView, error) {
	return s.mutate(ctx, id, input, (*wizard.Machine[F]).Next)
}

func (s *FormService[F]) Back(ctx context.Context, id string, input Input) (FormView, error) {
	return s.mutate(ctx, id, input, (*wizard.Machine[F]).Back)
}

// Close forgets the form and cancels its in-flight write, if any.
func (s *FormService[F]) Close(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	s.abandonInflight(id)
	if err := s.sessions.Delete(ctx, s.key(id)); err != nil {
		return fmt.Errorf("delete form session: %w", err)
	}
	return nil
}

// Submit performs the single store write for id. The session lock is released while the write
// runs, so Close can cancel it; a result that arrives after Close is discarded with ErrFormClosed.
func (s *FormService[F]) Submit(ctx context.Context, id string, input Input) (FormView, error) {
	unlock := s.locks.lock(id)
	machine, err := s.load(ctx, id)
	if err != nil {
		unlock()
		return FormView{}, err
	}
	if err := applyInput(machine, input); err != nil {
		unlock()
		return s.view(machine), err
	}
	if err := machine.BeginSubmit(); err != nil {
		var validationErr *wizard.ValidationError
		if errors.As(err, &validationErr) {
			if saveErr := s.save(ctx, id, machine); saveErr != nil {
				unlock()
				return FormView{}, saveErr
			}
		}
		unlock()
		return s.view(machine), err
	}

	form := machine.State().Form
	submittedAt := s.now()
	submission := Submission{
		Variant: s.definition.Variant,
		Table:   form.Table(),
		Row:     form.Row(submittedAt),
		Label:   form.Summary(),
		At:      submittedAt,
	}
	if err := s.save(ctx, id, machine); err != nil {
		unlock()
		return FormView{}, err
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	write := s.registerInflight(id, cancel)
	unlock()

	settled := false
	defer func() {
		if !settled {
			s.abortSubmission(ctx, id, write)
		}
	}()

	insertErr := s.inserter.Insert(writeCtx, submission.Table, submission.Row)
	cancel()

	view, err := s.settleSubmission(ctx, id, write, insertErr)
	if err != nil {
		settled = errors.Is(err, ErrFormClosed)
		return FormView{}, err
	}
	settled = true

	if insertErr != nil {
		s.logger.Warn("lead store write failed",
			zap.String("table", submission.Table),
			zap.Error(insertErr),
		)
		return view, &TransportError{Variant: submission.Variant, Table: submission.Table, Err: insertErr}
	}

	s.logger.Info("lead stored", zap.String("table", submission.Table), zap.String("label", submission.Label))
	for _, hook := range s.hooks {
		hook(ctx, submission)
	}
	return view, nil
}

// settleSubmission applies the store result to the session, unless the form was closed meanwhile.
func (s *FormService[F]) settleSubmission(ctx context.Context, id string, write *inflightWrite, insertErr error) (FormView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	if !s.finishInflight(id, write) {
		s.logger.Info("submission result discarded after close", zap.Error(insertErr))
		return FormView{}, ErrFormClosed
	}
	machine, err := s.load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrFormNotOpen) {
			return FormView{}, ErrFormClosed
		}
		return FormView{}, err
	}
	if !machine.CompleteSubmit(insertErr) {
		return FormView{}, ErrFormClosed
	}
	if err := s.save(ctx, id, machine); err != nil {
		return FormView{}, err
	}
	return s.view(machine), nil
}

// abortSubmission moves a submission that never settled (the insert panicked or the session could
// not be saved) from submitting to error, so the visitor can retry instead of hitting the in-flight
// guard until the session expires. A newer write for the same id is left alone.
func (s *FormService[F]) abortSubmission(ctx context.Context, id string, write *inflightWrite) {
	write.cancel()
	unlock := s.locks.lock(id)
	defer unlock()

	s.mu.Lock()
	if current, ok := s.inflight[id]; ok && current != write {
		s.mu.Unlock()
		return
	}
	delete(s.inflight, id)
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	machine, err := s.load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrFormNotOpen) {
			s.logger.Warn("load aborted submission", zap.Error(err))
		}
		return
	}
	if !machine.CompleteSubmit(errSubmissionAborted) {
		return
	}
	if err := s.save(ctx, id, machine); err != nil {
		s.logger.Error("aborted submission left in flight", zap.Error(err))
		return
	}
	s.logger.Warn("submission aborted", zap.String("table", machine.State().Form.Table()))
}

func (s *FormService[F]) mutate(ctx context.Context, id string, input Input, action func(*wizard.Machine[F]) error) (FormView, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	machine, err := s.load(ctx, id)
	if err != nil {
		return FormView{}, err
	}
	if err := applyInput(machine, input); err != nil {
		return s.view(machine), err
	}

	var actionErr error
	if action != nil {
		actionErr = action(machine)
		var validationErr *wizard.ValidationError
		if actionErr != nil && !errors.As(actionErr, &validationErr) {
			return s.view(machine), actionErr
		}
	}

	if err := s.save(ctx, id, machine); err != nil {
		return FormView{}, err
	}
	return s.view(machine), actionErr
}

func applyInput[F wizard.Form](machine *wizard.Machine[F], input Input) error {
	names := make([]string, 0, len(input.Fields))
	for name := range input.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := machine.SetField(name, input.Fields[name]); err != nil {
			return err
		}
	}
	if input.Consent != nil {
		if err := machine.SetConsent(*input.Consent); err != nil {
			return err
		}
	}
	return nil
}

func (s *FormService[F]) registerInflight(id string, cancel context.CancelFunc) *inflightWrite {
	write := &inflightWrite{cancel: cancel}
	s.mu.Lock()
	s.inflight[id] = write
	s.mu.Unlock()
	return write
}

// finishInflight reports whether write is still the current write for id and forgets it.
func (s *FormService[F]) finishInflight(id string, write *inflightWrite) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] != write {
		return false
	}
	delete(s.inflight, id)
	return true
}

func (s *FormService[F]) abandonInflight(id string) {
	s.mu.Lock()
	write, ok := s.inflight[id]
	delete(s.inflight, id)
	s.mu.Unlock()
	if ok {
		write.cancel()
	}
}

func (s *FormService[F]) key(id string) string {
	return sessions.Key("form:"+s.definition.Variant, id)
}

func (s *FormService[F]) load(ctx context.Context, id string) (*wizard.Machine[F], error) {
	state, ok, err := sessions.GetJSON[wizard.State[F]](ctx, s.sessions, s.key(id))
	if err != nil {
		return nil, fmt.Errorf("load form session: %w", err)
	}
	if !ok {
		return nil, ErrFormNotOpen
	}
	machine, err := wizard.Resume(s.definition, &state)
	if err != nil {
		return nil, fmt.Errorf("resume form session: %w", err)
	}
	return machine, nil
}

func (s *FormService[F]) save(ctx context.Context, id string, machine *wizard.Machine[F]) error {
	if err := sessions.SetJSON(ctx, s.sessions, s.key(id), machine.State()); err != nil {
		return fmt.Errorf("save form session: %w", err)
	}
	return nil
}

func (s *FormService[F]) view(machine *wizard.Machine[F]) FormView {
	state := machine.State()
	definition := machine.Definition()
	return FormView{
		Variant:         definition.Variant,
		Step:            state.Step,
		TotalSteps:      definition.TotalSteps(),
		StepName:        definition.Steps[state.Step-1].Name,
		Direction:       state.Direction,
		Status:          state.Status,
		ConsentAccepted: state.ConsentAccepted,
		ConsentRequired: definition.ConsentRequired,
		Fields:          fieldValues(definition, state.Form),
		Errors:          append([]wizard.FieldError(nil), state.Errors...),
		Progress:        machine.Progress(),
		Submitted:       state.Submitted,
		Seed:            state.Seed,
	}
}

// fieldValues reads every field the definition declares through the record itself.
func fieldValues[F wizard.Form](definition wizard.Definition[F], form F) map[string]string {
	names := definition.FieldNames()
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = form.Value(name)
	}
	return values
}

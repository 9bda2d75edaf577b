package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dontwait/dontwait/internal/forms"
	"github.com/dontwait/dontwait/internal/sessions"
	"github.com/dontwait/dontwait/internal/store"
	"github.com/dontwait/dontwait/internal/store/storetest"
	"github.com/dontwait/dontwait/internal/wizard"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type hookRecorder struct {
	mu          sync.Mutex
	submissions []Submission
}

func (r *hookRecorder) hook(_ context.Context, submission Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, submission)
}

func (r *hookRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submissions)
}

func newPlanService(t *testing.T, inserter *storetest.Recording, recorder *hookRecorder) *FormService[*forms.PlanSelection] {
	t.Helper()

	service, err := NewFormService(forms.PlanSelectionDefinition(), FormServiceConfig{
		Sessions:     sessions.NewMemoryStore(time.Hour),
		Inserter:     inserter,
		StoreTimeout: time.Second,
		Hooks:        []SuccessHook{recorder.hook},
	})
	require.NoError(t, err)
	service.now = func() time.Time {
		return time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)
	}
	return service
}

func consent(value bool) *bool {
	return &value
}

func fillPlanToFinalStep(t *testing.T, service *FormService[*forms.PlanSelection], id string) {
	t.Helper()
	ctx := context.Background()

	_, err := service.Open(ctx, id, wizard.Seed{Package: forms.PackagePro})
	require.NoError(t, err)
	_, err = service.Next(ctx, id, Input{})
	require.NoError(t, err)
	view, err := service.Next(ctx, id, Input{Fields: map[string]string{
		forms.FieldName:  "Maria",
		forms.FieldEmail: "m@x.gr",
		forms.FieldPhone: "6912345678",
	}})
	require.NoError(t, err)
	require.Equal(t, 3, view.Step)
	require.True(t, view.IsFinalStep())
}

func TestFormServiceSubmitsPlanSelectionOnce(t *testing.T) {
	t.Parallel()

	inserter := storetest.NewRecording()
	recorder := &hookRecorder{}
	service := newPlanService(t, inserter, recorder)
	fillPlanToFinalStep(t, service, "visitor-1")

	view, err := service.Submit(context.Background(), "visitor-1", Input{Consent: consent(true)})
	require.NoError(t, err)
	require.Equal(t, wizard.StatusSuccess, view.Status)
	require.Equal(t, "Pro", view.Submitted)
	require.Equal(t, "", view.Fields[forms.FieldName], "fields reset after success")
	require.Equal(t, forms.PackagePro, view.Fields[forms.FieldPackage], "seed survives the reset")

	inserts := inserter.Inserts()
	require.Len(t, inserts, 1)
	require.Equal(t, forms.TablePlanSelection, inserts[0].Table)
	require.Equal(t, "pro", inserts[0].Row["Packets"])
	require.Equal(t, "pro", inserts[0].Row["selected_plan"])
	require.Equal(t, "Maria", inserts[0].Row["Name"])
	require.Equal(t, 1, recorder.count())

	_, err = service.Submit(context.Background(), "visitor-1", Input{Consent: consent(true)})
	require.ErrorIs(t, err, wizard.ErrAlreadySubmitted)
	require.Equal(t, 1, inserter.Count())
	require.Equal(t, 1, recorder.count())
}

func TestFormServiceSubmitWithoutConsentNeverWrites(t *testing.T) {
	t.Parallel()

	inserter := storetest.NewRecording()
	recorder := &hookRecorder{}
	service := newPlanService(t, inserter, recorder)
	fillPlanToFinalStep(t, service, "visitor-2")

	view, err := service.Submit(context.Background(), "visitor-2", Input{})
	var validationErr *wizard.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.True(t, validationErr.Has(wizard.ConsentField))
	require.Equal(t, wizard.StatusIdle, view.Status)
	require.Equal(t, wizard.CodeRequired, view.FieldError(wizard.ConsentField))
	require.Equal(t, 0, inserter.Count())

	stored, err := service.Get(context.Background(), "visitor-2")
	require.NoError(t, err)
	require.NotEmpty(t, stored.Errors, "validation errors are kept in the session")
}

func TestFormServiceStoreFailureAllowsRetry(t *testing.T) {
	t.Parallel()

	inserter := storetest.NewRecording()
	inserter.Fail(errors.New("connection reset"))
	recorder := &hookRecorder{}
	service := newPlanService(t, inserter, recorder)
	fillPlanToFinalStep(t, service, "visitor-3")

	view, err := service.Submit(context.Background(), "visitor-3", Input{Consent: consent(true)})
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, forms.TablePlanSelection, transportErr.Table)
	require.Equal(t, wizard.StatusError, view.Status)
	require.Equal(t, 3, view.Step)
	require.Equal(t, "Maria", view.Fields[forms.FieldName], "fields kept for a retry")
	require.Equal(t, 0, recorder.count())

	inserter.Fail(nil)
	view, err = service.Submit(context.Background(), "visitor-3", Input{})
	require.NoError(t, err)
	require.Equal(t, wizard.StatusSuccess, view.Status)
	require.Equal(t, 1, inserter.Count())
	require.Equal(t, 1, recorder.count())
}

func TestFormServiceRejectsSecondSubmitWhileInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	inserter := storetest.NewRecording()
	inserter.Block = make(chan struct{})
	inserter.Started = make(chan struct{}, 1)
	recorder := &hookRecorder{}
	service := newPlanService(t, inserter, recorder)
	fillPlanToFinalStep(t, service, "visitor-4")

	type result struct {
		view FormView
		err  error
	}
	done := make(chan result, 1)
	go func() {
		view, err := service.Submit(context.Background(), "visitor-4", Input{Consent: consent(true)})
		done <- result{view: view, err: err}
	}()
	<-inserter.Started

	_, err := service.Submit(context.Background(), "visitor-4", Input{Consent: consent(true)})
	require.ErrorIs(t, err, wizard.ErrSubmissionInFlight)
	_, err = service.Next(context.Background(), "visitor-4", Input{})
	require.ErrorIs(t, err, wizard.ErrSubmissionInFlight)

	close(inserter.Block)
	first := <-done
	require.NoError(t, first.err)
	require.Equal(t, wizard.StatusSuccess, first.view.Status)
	require.Equal(t, 1, inserter.Count())
	require.Equal(t, 1, recorder.count())
}

func TestFormServiceCloseCancelsInFlightWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	inserter := storetest.NewRecording()
	inserter.Block = make(chan struct{})
	inserter.Started = make(chan struct{}, 1)
	recorder := &hookRecorder{}
	service := newPlanService(t, inserter, recorder)
	fillPlanToFinalStep(t, service, "visitor-5")

	done := make(chan error, 1)
	go func() {
		_, err := service.Submit(context.Background(), "visitor-5", Input{Consent: consent(true)})
		done <- err
	}()
	<-inserter.Started

	require.NoError(t, service.Close(context.Background(), "visitor-5"))

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrFormClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not observe the close")
	}
	require.Equal(t, 0, inserter.Count())
	require.Equal(t, 0, recorder.count())

	_, err := service.Get(context.Background(), "visitor-5")
	require.ErrorIs(t, err, ErrFormNotOpen)
}

func TestFormServiceBackNeverValidates(t *testing.T) {
	t.Parallel()

	service := newPlanService(t, storetest.NewRecording(), &hookRecorder{})
	ctx := context.Background()
	fillPlanToFinalStep(t, service, "visitor-6")

	view, err := service.Back(ctx, "visitor-6", Input{Fields: map[string]string{forms.FieldName: ""}})
	require.NoError(t, err)
	require.Equal(t, 2, view.Step)
	require.Equal(t, wizard.Backward, view.Direction)

	view, err = service.Back(ctx, "visitor-6", Input{})
	require.NoError(t, err)
	require.Equal(t, 1, view.Step)

	_, err = service.Back(ctx, "visitor-6", Input{})
	require.ErrorIs(t, err, wizard.ErrAtFirstStep)
}

func TestFormServiceNextFailureLeavesStep(t *testing.T) {
	t.Parallel()

	service := newPlanService(t, storetest.NewRecording(), &hookRecorder{})
	ctx := context.Background()
	_, err := service.Open(ctx, "visitor-7", wizard.Seed{})
	require.NoError(t, err)

	view, err := service.Next(ctx, "visitor-7", Input{})
	var validationErr *wizard.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, 1, view.Step)
	require.Equal(t, wizard.CodeRequired, view.FieldError(forms.FieldPackage))

	_, err = service.Apply(ctx, "visitor-7", Input{Fields: map[string]string{"password": "x"}})
	require.ErrorIs(t, err, wizard.ErrUnknownField)
}

func TestFormServiceRequiresOpenForm(t *testing.T) {
	t.Parallel()

	service := newPlanService(t, storetest.NewRecording(), &hookRecorder{})
	_, err := service.Next(context.Background(), "nobody", Input{})
	require.ErrorIs(t, err, ErrFormNotOpen)
	_, err = service.Submit(context.Background(), "nobody", Input{})
	require.ErrorIs(t, err, ErrFormNotOpen)
}

func TestFormServiceOpenReplacesPreviousState(t *testing.T) {
	t.Parallel()

	service := newPlanService(t, storetest.NewRecording(), &hookRecorder{})
	ctx := context.Background()
	fillPlanToFinalStep(t, service, "visitor-8")

	view, err := service.Open(ctx, "visitor-8", wizard.Seed{Package: forms.PackageBasic})
	require.NoError(t, err)
	require.Equal(t, 1, view.Step)
	require.Equal(t, forms.PackageBasic, view.Fields[forms.FieldPackage])
	require.Equal(t, "", view.Fields[forms.FieldName])
	require.Equal(t, []float64{1, 0, 0}, view.Progress)
}

func TestTrialServiceSubmitsWithoutConsent(t *testing.T) {
	t.Parallel()

	inserter := storetest.NewRecording()
	service, err := NewFormService(forms.TrialDefinition(), FormServiceConfig{
		Sessions: sessions.NewMemoryStore(time.Hour),
		Inserter: inserter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = service.Open(ctx, "trial-visitor", wizard.Seed{Package: forms.PackageBasic})
	require.NoError(t, err)

	view, err := service.Submit(ctx, "trial-visitor", Input{Fields: map[string]string{
		forms.FieldName:        "Nikos",
		forms.FieldEmail:       "nikos@example.gr",
		forms.FieldCompanyType: "salon",
	}})
	require.NoError(t, err)
	require.Equal(t, wizard.StatusSuccess, view.Status)
	require.Equal(t, "Basic", view.Submitted)

	inserts := inserter.Inserts()
	require.Len(t, inserts, 1)
	require.Equal(t, forms.TableTrial, inserts[0].Table)
	require.Equal(t, "salon", inserts[0].Row["Type"])
}

// panicOnceInserter panics on its first insert and records every later one.
type panicOnceInserter struct {
	*storetest.Recording
	panicked atomic.Bool
}

func (p *panicOnceInserter) Insert(ctx context.Context, table string, row store.Row) error {
	if p.panicked.CompareAndSwap(false, true) {
		panic("driver bug")
	}
	return p.Recording.Insert(ctx, table, row)
}

// flakySessions fails the next Set once armed.
type flakySessions struct {
	sessions.Store
	failNextSet atomic.Bool
}

func (f *flakySessions) Set(ctx context.Context, key string, value []byte) error {
	if f.failNextSet.CompareAndSwap(true, false) {
		return errors.New("session store unavailable")
	}
	return f.Store.Set(ctx, key, value)
}

func newPlanServiceWith(t *testing.T, sessionStore sessions.Store, inserter store.Inserter) *FormService[*forms.PlanSelection] {
	t.Helper()

	service, err := NewFormService(forms.PlanSelectionDefinition(), FormServiceConfig{
		Sessions:     sessionStore,
		Inserter:     inserter,
		StoreTimeout: time.Second,
	})
	require.NoError(t, err)
	return service
}

func TestFormServicePanickingInsertDoesNotLeaveFormInFlight(t *testing.T) {
	t.Parallel()

	inserter := &panicOnceInserter{Recording: storetest.NewRecording()}
	service := newPlanServiceWith(t, sessions.NewMemoryStore(time.Hour), inserter)
	fillPlanToFinalStep(t, service, "visitor-panic")
	ctx := context.Background()

	require.Panics(t, func() {
		_, _ = service.Submit(ctx, "visitor-panic", Input{Consent: consent(true)})
	})

	view, err := service.Get(ctx, "visitor-panic")
	require.NoError(t, err)
	require.Equal(t, wizard.StatusError, view.Status)
	require.Equal(t, "Maria", view.Fields[forms.FieldName])

	view, err = service.Submit(ctx, "visitor-panic", Input{Consent: consent(true)})
	require.NoError(t, err)
	require.Equal(t, wizard.StatusSuccess, view.Status)
	require.Equal(t, 1, inserter.Count())
}

func TestFormServiceUnsavedResultDoesNotLeaveFormInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	inserter := storetest.NewRecording()
	inserter.Block = make(chan struct{})
	inserter.Started = make(chan struct{}, 1)
	sessionStore := &flakySessions{Store: sessions.NewMemoryStore(time.Hour)}
	service := newPlanServiceWith(t, sessionStore, inserter)
	fillPlanToFinalStep(t, service, "visitor-flaky")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := service.Submit(ctx, "visitor-flaky", Input{Consent: consent(true)})
		done <- err
	}()
	select {
	case <-inserter.Started:
	case <-time.After(2 * time.Second):
		t.Fatal("submission never reached the store")
	}
	sessionStore.failNextSet.Store(true)
	close(inserter.Block)

	select {
	case err := <-done:
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrFormClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("submission never finished")
	}

	view, err := service.Get(ctx, "visitor-flaky")
	require.NoError(t, err)
	require.Equal(t, wizard.StatusError, view.Status, "the form can be submitted again")

	view, err = service.Submit(ctx, "visitor-flaky", Input{Consent: consent(true)})
	require.NoError(t, err)
	require.Equal(t, wizard.StatusSuccess, view.Status)
}

func TestFormServiceViewListsEveryDeclaredField(t *testing.T) {
	t.Parallel()

	service := newPlanService(t, storetest.NewRecording(), &hookRecorder{})
	view, err := service.Open(context.Background(), "visitor-fields", wizard.Seed{Package: forms.PackageEnterprise})
	require.NoError(t, err)

	require.Len(t, view.Fields, len(forms.PlanSelectionDefinition().FieldNames()))
	require.Equal(t, forms.PackageEnterprise, view.Fields[forms.FieldPackage])
	require.Contains(t, view.Fields, forms.FieldBillingPeriod)
	require.Contains(t, view.Fields, forms.FieldComment)
}

package api

import (
	"strings"

	"github.com/dontwait/dontwait/internal/forms"
	"github.com/dontwait/dontwait/internal/services"
	"github.com/dontwait/dontwait/internal/wizard"
)

type formOption struct {
	Value    string
	Label    string
	Selected bool
}

type formFieldData struct {
	Name     string
	Label    string
	Kind     string
	Value    string
	Error    string
	Required bool
	// Refresh re-renders the dialog when the value changes, e.g. to reveal a dependent field.
	Refresh bool
	Options []formOption
}

type formStepData struct {
	Label   string
	Fill    float64
	Done    bool
	Current bool
}

// formViewData is the presentation shell of one dialog: a pure function of the form snapshot.
type formViewData struct {
	Variant         string
	Title           string
	Form            services.FormView
	StepLabel       string
	Steps           []formStepData
	Fields          []formFieldData
	ShowConsent     bool
	ConsentAccepted bool
	ConsentError    string
	Summary         string
	Error           string
	Success         bool
	SuccessTitle    string
	SuccessMessage  string
	Submitting      bool
	CanGoBack       bool
	IsFinalStep     bool
	Transition      string
	CSRFToken       string
	Messages        map[string]string
}

type fieldSpec struct {
	name     string
	kind     string
	required bool
	refresh  bool
	options  func(messages map[string]string) []formOption
	visible  func(values map[string]string) bool
}

var formLayouts = map[string]map[string][]fieldSpec{
	forms.VariantPlan: {
		"package": {
			{name: forms.FieldPackage, kind: "radio", required: true, options: packageOptions},
			{name: forms.FieldBillingPeriod, kind: "select", options: billingOptions},
		},
		"contact": {
			{name: forms.FieldName, kind: "text", required: true},
			{name: forms.FieldEmail, kind: "email", required: true},
			{name: forms.FieldPhone, kind: "tel", required: true},
		},
		"comment": {
			{name: forms.FieldComment, kind: "textarea"},
		},
	},
	forms.VariantTrial: {
		"trial": {
			{name: forms.FieldName, kind: "text", required: true},
			{name: forms.FieldEmail, kind: "email", required: true},
			{name: forms.FieldCompanyType, kind: "select", required: true, refresh: true, options: companyTypeOptions},
			{name: forms.FieldCompanyTypeOther, kind: "text", required: true, visible: otherCompanyTypeChosen},
			{name: forms.FieldPackage, kind: "select", required: true, options: packageOptions},
		},
	},
	forms.VariantSupport: {
		"message": {
			{name: forms.FieldName, kind: "text", required: true},
			{name: forms.FieldEmail, kind: "email", required: true},
			{name: forms.FieldSubject, kind: "text"},
			{name: forms.FieldMessage, kind: "textarea", required: true},
		},
	},
	forms.VariantChatEmail: {
		"email": {
			{name: forms.FieldEmail, kind: "email", required: true},
			{name: forms.FieldMessage, kind: "textarea"},
		},
	},
}

func buildFormViewData(messages map[string]string, csrf string, view services.FormView, errorCode string) formViewData {
	data := formViewData{
		Variant:         view.Variant,
		Title:           translateMessage(messages, "form.title."+view.Variant),
		Form:            view,
		StepLabel:       templateTranslatef(messages, "common.step_of", view.Step, view.TotalSteps),
		Steps:           buildFormSteps(messages, view),
		ShowConsent:     view.ConsentRequired && view.IsFinalStep(),
		ConsentAccepted: view.ConsentAccepted,
		Submitting:      view.Status == wizard.StatusSubmitting,
		CanGoBack:       view.Step > 1 && view.Status != wizard.StatusSubmitting,
		IsFinalStep:     view.IsFinalStep(),
		Transition:      transitionName(view.Direction),
		CSRFToken:       csrf,
		Messages:        messages,
	}

	if view.Status == wizard.StatusSuccess {
		data.Success = true
		data.SuccessTitle = translateMessage(messages, "form.success.title")
		data.SuccessMessage = successMessage(messages, view)
		return data
	}

	for _, spec := range formLayouts[view.Variant][view.StepName] {
		if spec.visible != nil && !spec.visible(view.Fields) {
			continue
		}
		field := formFieldData{
			Name:     spec.name,
			Label:    translateMessage(messages, "field."+spec.name),
			Kind:     spec.kind,
			Value:    view.Fields[spec.name],
			Error:    fieldErrorMessage(messages, spec.name, view.FieldError(spec.name)),
			Required: spec.required,
			Refresh:  spec.refresh,
		}
		if spec.options != nil {
			field.Options = markSelected(spec.options(messages), field.Value)
		}
		data.Fields = append(data.Fields, field)
	}

	if view.FieldError(wizard.ConsentField) != "" {
		data.ConsentError = translateMessage(messages, "form.error.consent_required")
	}
	if key := validationSummaryKey(view); key != "" {
		data.Summary = translateMessage(messages, key)
	}

	switch {
	case errorCode != "" && errorCode != errorValidationFailed:
		data.Error = localizedErrorMessage(messages, errorCode)
	case view.Status == wizard.StatusError:
		data.Error = localizedErrorMessage(messages, errorStoreUnavailable)
	}
	return data
}

func buildFormSteps(messages map[string]string, view services.FormView) []formStepData {
	steps := make([]formStepData, 0, view.TotalSteps)
	for index := 0; index < view.TotalSteps; index++ {
		position := index + 1
		step := formStepData{
			Done:    position < view.Step || view.Status == wizard.StatusSuccess,
			Current: position == view.Step && view.Status != wizard.StatusSuccess,
		}
		if index < len(view.Progress) {
			step.Fill = view.Progress[index]
		}
		if step.Done {
			step.Fill = 1
		}
		if position == view.Step {
			step.Label = translateMessage(messages, "form.step."+view.StepName)
		}
		steps = append(steps, step)
	}
	return steps
}

func transitionName(direction wizard.Direction) string {
	if direction == wizard.Backward {
		return "backward"
	}
	return "forward"
}

func fieldErrorMessage(messages map[string]string, field string, code string) string {
	switch {
	case code == "":
		return ""
	case code == wizard.CodeInvalid && field == forms.FieldEmail:
		return translateMessage(messages, "form.error.email_invalid")
	case code == wizard.CodeInvalid:
		return translateMessage(messages, "form.error.invalid")
	default:
		return translateMessage(messages, "form.error.required")
	}
}

// validationSummaryKey picks the step-level message shown above the inline field errors.
func validationSummaryKey(view services.FormView) string {
	if len(view.Errors) == 0 {
		return ""
	}
	if view.Variant == forms.VariantPlan {
		switch view.StepName {
		case "package":
			if view.FieldError(forms.FieldPackage) != "" {
				return "form.error.package_required"
			}
		case "contact":
			for _, fieldError := range view.Errors {
				if fieldError.Code == wizard.CodeRequired {
					return "form.error.contact_required"
				}
			}
		}
	}
	return ""
}

func successMessage(messages map[string]string, view services.FormView) string {
	message := translateMessage(messages, "form.success."+view.Variant)
	if strings.Contains(message, "%s") {
		return templateTranslatef(messages, "form.success."+view.Variant, view.Submitted)
	}
	return message
}

func packageOptions(map[string]string) []formOption {
	packages := forms.Packages()
	options := make([]formOption, 0, len(packages))
	for _, item := range packages {
		options = append(options, formOption{Value: item.Code, Label: item.Label})
	}
	return options
}

func billingOptions(messages map[string]string) []formOption {
	return []formOption{
		{Value: forms.BillingMonthly, Label: translateMessage(messages, "billing.monthly")},
		{Value: forms.BillingYearly, Label: translateMessage(messages, "billing.yearly")},
	}
}

func companyTypeOptions(messages map[string]string) []formOption {
	types := forms.CompanyTypes()
	options := make([]formOption, 0, len(types))
	for _, companyType := range types {
		options = append(options, formOption{Value: companyType, Label: translateMessage(messages, "company_type."+companyType)})
	}
	return options
}

func otherCompanyTypeChosen(values map[string]string) bool {
	return values[forms.FieldCompanyType] == forms.CompanyTypeOther
}

func markSelected(options []formOption, value string) []formOption {
	for index := range options {
		options[index].Selected = options[index].Value == value
	}
	return options
}

package forms

import (
	"strings"
	"time"

	"github.com/dontwait/dontwait/internal/store"
	"github.com/dontwait/dontwait/internal/wizard"
)

const TablePlanSelection = "request_form_leads"

// PlanSelection is the three step "choose a plan" request.
type PlanSelection struct {
	Package       string `json:"package"`
	BillingPeriod string `json:"billing_period"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Comment       string `json:"comment"`
}

func NewPlanSelection(seed wizard.Seed) *PlanSelection {
	form := &PlanSelection{BillingPeriod: BillingMonthly}
	if found, ok := LookupPackage(seed.Package); ok {
		form.Package = found.Code
	}
	return form
}

func (f *PlanSelection) SetField(name string, value string) error {
	switch name {
	case FieldPackage:
		f.Package = strings.ToLower(clean(value))
	case FieldBillingPeriod:
		f.BillingPeriod = clean(value)
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldPhone:
		f.Phone = value
	case FieldComment:
		f.Comment = value
	default:
		return unknownField(name)
	}
	return nil
}

func (f *PlanSelection) Value(name string) string {
	switch name {
	case FieldPackage:
		return f.Package
	case FieldBillingPeriod:
		return f.BillingPeriod
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldPhone:
		return f.Phone
	case FieldComment:
		return f.Comment
	default:
		return ""
	}
}

func (f *PlanSelection) Summary() string {
	return PackageLabel(f.Package)
}

func (f *PlanSelection) Table() string {
	return TablePlanSelection
}

// Row maps the record onto request_form_leads. The phone number goes into "Type" and the
// comment has no column.
func (f *PlanSelection) Row(now time.Time) store.Row {
	billing := clean(f.BillingPeriod)
	if billing == "" {
		billing = BillingMonthly
	}
	return store.Row{
		"Name":           clean(f.Name),
		"Email":          NormalizeEmail(f.Email),
		"Type":           clean(f.Phone),
		"Packets":        f.Package,
		"selected_plan":  f.Package,
		"billing_period": billing,
		"createdat":      createdAt(now),
	}
}

func PlanSelectionDefinition() wizard.Definition[*PlanSelection] {
	return wizard.Definition[*PlanSelection]{
		Variant:         VariantPlan,
		ConsentRequired: true,
		New:             NewPlanSelection,
		Steps: []wizard.Step[*PlanSelection]{
			{
				Name:     "package",
				Fields:   []string{FieldPackage},
				Required: []string{FieldPackage},
				Optional: []string{FieldBillingPeriod},
				Validate: func(form *PlanSelection) []wizard.FieldError {
					fieldErrors := validatePackage(form.Package)
					if form.BillingPeriod != "" && !IsBillingPeriod(form.BillingPeriod) {
						fieldErrors = append(fieldErrors, wizard.FieldError{Field: FieldBillingPeriod, Code: wizard.CodeInvalid})
					}
					return fieldErrors
				},
			},
			{
				Name:     "contact",
				Fields:   []string{FieldName, FieldEmail, FieldPhone},
				Required: []string{FieldName, FieldEmail, FieldPhone},
				Validate: func(form *PlanSelection) []wizard.FieldError {
					return validateEmail(form.Email)
				},
			},
			{
				Name:   "comment",
				Fields: []string{FieldComment},
			},
		},
	}
}

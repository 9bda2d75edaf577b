package forms

import (
	"strings"
	"time"

	"github.com/dontwait/dontwait/internal/store"
	"github.com/dontwait/dontwait/internal/wizard"
)

const TableTrial = "Request Form"

const CompanyTypeOther = "other"

var companyTypes = []string{"salon", "nails", "restaurant", "cleaning", CompanyTypeOther}

func CompanyTypes() []string {
	result := make([]string, len(companyTypes))
	copy(result, companyTypes)
	return result
}

// Trial is the single step free-trial request.
type Trial struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	CompanyType      string `json:"company_type"`
	CompanyTypeOther string `json:"company_type_other"`
	Package          string `json:"package"`
}

func NewTrial(seed wizard.Seed) *Trial {
	form := &Trial{}
	if found, ok := LookupPackage(seed.Package); ok {
		form.Package = found.Code
	}
	return form
}

func (f *Trial) SetField(name string, value string) error {
	switch name {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldCompanyType:
		f.CompanyType = strings.ToLower(clean(value))
	case FieldCompanyTypeOther:
		f.CompanyTypeOther = value
	case FieldPackage:
		f.Package = strings.ToLower(clean(value))
	default:
		return unknownField(name)
	}
	return nil
}

func (f *Trial) Value(name string) string {
	switch name {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldCompanyType:
		return f.CompanyType
	case FieldCompanyTypeOther:
		return f.CompanyTypeOther
	case FieldPackage:
		return f.Package
	default:
		return ""
	}
}

func (f *Trial) Summary() string {
	return PackageLabel(f.Package)
}

func (f *Trial) Table() string {
	return TableTrial
}

// BusinessType is the value stored in "Type": the free-text description when "other" was chosen.
func (f *Trial) BusinessType() string {
	if f.CompanyType == CompanyTypeOther {
		return clean(f.CompanyTypeOther)
	}
	return f.CompanyType
}

func (f *Trial) Row(now time.Time) store.Row {
	return store.Row{
		"Name":      clean(f.Name),
		"Email":     NormalizeEmail(f.Email),
		"Type":      f.BusinessType(),
		"Packets":   f.Package,
		"createdat": createdAt(now),
	}
}

func TrialDefinition() wizard.Definition[*Trial] {
	return wizard.Definition[*Trial]{
		Variant: VariantTrial,
		New:     NewTrial,
		Steps: []wizard.Step[*Trial]{
			{
				Name:     "trial",
				Fields:   []string{FieldName, FieldEmail, FieldCompanyType, FieldPackage},
				Required: []string{FieldName, FieldEmail, FieldCompanyType, FieldPackage},
				Optional: []string{FieldCompanyTypeOther},
				Validate: validateTrial,
			},
		},
	}
}

func validateTrial(form *Trial) []wizard.FieldError {
	fieldErrors := validateEmail(form.Email)
	fieldErrors = append(fieldErrors, validatePackage(form.Package)...)

	if form.CompanyType != "" && !isCompanyType(form.CompanyType) {
		fieldErrors = append(fieldErrors, wizard.FieldError{Field: FieldCompanyType, Code: wizard.CodeInvalid})
	}
	if form.CompanyType == CompanyTypeOther && clean(form.CompanyTypeOther) == "" {
		fieldErrors = append(fieldErrors, wizard.FieldError{Field: FieldCompanyTypeOther, Code: wizard.CodeRequired})
	}
	return fieldErrors
}

func isCompanyType(raw string) bool {
	for _, candidate := range companyTypes {
		if candidate == raw {
			return true
		}
	}
	return false
}

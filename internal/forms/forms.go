// Package forms holds the typed record and wizard definition of every lead form variant,
// together with the fixed column mapping each one writes to the lead store.
package forms

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dontwait/dontwait/internal/store"
	"github.com/dontwait/dontwait/internal/wizard"
)

const (
	VariantPlan      = "plan"
	VariantTrial     = "trial"
	VariantSupport   = "support"
	VariantChatEmail = "chat-email"
)

const (
	FieldPackage          = "package"
	FieldBillingPeriod    = "billing_period"
	FieldName             = "name"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldComment          = "comment"
	FieldCompanyType      = "company_type"
	FieldCompanyTypeOther = "company_type_other"
	FieldSubject          = "subject"
	FieldMessage          = "message"
)

// createdat is written the way browsers serialise dates (millisecond precision, UTC, trailing Z).
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is a form variant that knows where and how it is stored.
type Record interface {
	wizard.Form
	Table() string
	Row(now time.Time) store.Row
}

// Variants lists every form variant in display order.
func Variants() []string {
	return []string{VariantPlan, VariantTrial, VariantSupport, VariantChatEmail}
}

func IsVariant(raw string) bool {
	for _, variant := range Variants() {
		if variant == raw {
			return true
		}
	}
	return false
}

func unknownField(name string) error {
	return fmt.Errorf("%w: %q", wizard.ErrUnknownField, name)
}

func createdAt(now time.Time) string {
	return now.UTC().Format(createdAtLayout)
}

func clean(value string) string {
	return strings.TrimSpace(value)
}

// NormalizeEmail lowercases and trims the address and returns "" when it does not parse
// as a bare address.
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return ""
	}
	return email
}

// validateEmail reports a malformed address. Empty values are left to the required check.
func validateEmail(value string) []wizard.FieldError {
	if clean(value) == "" {
		return nil
	}
	if NormalizeEmail(value) == "" {
		return []wizard.FieldError{{Field: FieldEmail, Code: wizard.CodeInvalid}}
	}
	return nil
}

func validatePackage(value string) []wizard.FieldError {
	if clean(value) == "" {
		return nil
	}
	if _, ok := LookupPackage(value); !ok {
		return []wizard.FieldError{{Field: FieldPackage, Code: wizard.CodeInvalid}}
	}
	return nil
}

package forms

import (
	"time"

	"github.com/dontwait/dontwait/internal/store"
	"github.com/dontwait/dontwait/internal/wizard"
)

const (
	TableSupport   = "support_messages"
	TableChatEmail = "chat_emails"
)

// Support is a message to the support team. It is also the fallback offered when no chat agent answers.
type Support struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func NewSupport(wizard.Seed) *Support {
	return &Support{}
}

func (f *Support) SetField(name string, value string) error {
	switch name {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldSubject:
		f.Subject = value
	case FieldMessage:
		f.Message = value
	default:
		return unknownField(name)
	}
	return nil
}

func (f *Support) Value(name string) string {
	switch name {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldSubject:
		return f.Subject
	case FieldMessage:
		return f.Message
	default:
		return ""
	}
}

func (f *Support) Summary() string {
	return clean(f.Subject)
}

func (f *Support) Table() string {
	return TableSupport
}

func (f *Support) Row(now time.Time) store.Row {
	return store.Row{
		"Name":      clean(f.Name),
		"Email":     NormalizeEmail(f.Email),
		"Subject":   clean(f.Subject),
		"Message":   clean(f.Message),
		"createdat": createdAt(now),
	}
}

func SupportDefinition() wizard.Definition[*Support] {
	return wizard.Definition[*Support]{
		Variant:         VariantSupport,
		ConsentRequired: true,
		New:             NewSupport,
		Steps: []wizard.Step[*Support]{
			{
				Name:     "message",
				Fields:   []string{FieldName, FieldEmail, FieldSubject, FieldMessage},
				Required: []string{FieldName, FieldEmail, FieldMessage},
				Validate: func(form *Support) []wizard.FieldError {
					return validateEmail(form.Email)
				},
			},
		},
	}
}

// ChatEmail is the short "leave us your email" form inside the chat widget.
type ChatEmail struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

func NewChatEmail(wizard.Seed) *ChatEmail {
	return &ChatEmail{}
}

func (f *ChatEmail) SetField(name string, value string) error {
	switch name {
	case FieldEmail:
		f.Email = value
	case FieldMessage:
		f.Message = value
	default:
		return unknownField(name)
	}
	return nil
}

func (f *ChatEmail) Value(name string) string {
	switch name {
	case FieldEmail:
		return f.Email
	case FieldMessage:
		return f.Message
	default:
		return ""
	}
}

func (f *ChatEmail) Summary() string {
	return ""
}

func (f *ChatEmail) Table() string {
	return TableChatEmail
}

func (f *ChatEmail) Row(time.Time) store.Row {
	return store.Row{
		"email":   NormalizeEmail(f.Email),
		"message": clean(f.Message),
	}
}

func ChatEmailDefinition() wizard.Definition[*ChatEmail] {
	return wizard.Definition[*ChatEmail]{
		Variant: VariantChatEmail,
		New:     NewChatEmail,
		Steps: []wizard.Step[*ChatEmail]{
			{
				Name:     "email",
				Fields:   []string{FieldEmail, FieldMessage},
				Required: []string{FieldEmail},
				Validate: func(form *ChatEmail) []wizard.FieldError {
					return validateEmail(form.Email)
				},
			},
		},
	}
}

package api

import (
	"fmt"

	"github.com/dontwait/dontwait/internal/forms"
)

func (handler *Handler) registerForms(flows ...FormFlow) error {
	handler.forms = make(map[string]FormFlow, len(flows))
	for _, flow := range flows {
		if flow == nil {
			continue
		}
		variant := flow.Variant()
		if !forms.IsVariant(variant) {
			return fmt.Errorf("unknown form variant %q", variant)
		}
		if _, exists := handler.forms[variant]; exists {
			return fmt.Errorf("form variant %q registered twice", variant)
		}
		handler.forms[variant] = flow
	}
	for _, variant := range forms.Variants() {
		if _, ok := handler.forms[variant]; !ok {
			return fmt.Errorf("form variant %q is not registered", variant)
		}
	}
	return nil
}

func (handler *Handler) formFlow(variant string) (FormFlow, bool) {
	flow, ok := handler.forms[variant]
	return flow, ok
}

// Package i18n serves the interface strings of the site in Greek and English.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

const (
	LangEL = "el"
	LangEN = "en"
)

var requiredLanguages = []string{LangEL, LangEN}

//go:embed locales/*.json
var embeddedLocales embed.FS

// Manager holds one catalogue per language, already merged over the default language so a
// missing key falls back to Greek.
type Manager struct {
	defaultLanguage string
	supported       []string
	catalogues      map[string]map[string]string
	matcher         language.Matcher
}

// NewManager loads the locales embedded in the binary.
func NewManager(defaultLanguage string) (*Manager, error) {
	locales, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	return NewManagerFS(defaultLanguage, locales)
}

// NewManagerFS loads every <lang>.json file at the root of localesFS.
func NewManagerFS(defaultLanguage string, localesFS fs.FS) (*Manager, error) {
	raw, err := readCatalogues(localesFS)
	if err != nil {
		return nil, err
	}
	for _, required := range requiredLanguages {
		if _, ok := raw[required]; !ok {
			return nil, fmt.Errorf("required locale %q missing", required)
		}
	}

	supported := make([]string, 0, len(raw))
	for code := range raw {
		supported = append(supported, code)
	}
	sort.Strings(supported)

	manager := &Manager{defaultLanguage: LangEL, supported: supported}
	manager.defaultLanguage = manager.NormalizeLanguage(defaultLanguage)

	// The matcher falls back to its first tag, so the default language goes first.
	tags := []language.Tag{language.Make(manager.defaultLanguage)}
	for _, code := range supported {
		if code != manager.defaultLanguage {
			tags = append(tags, language.Make(code))
		}
	}
	manager.matcher = language.NewMatcher(tags)

	base := raw[manager.defaultLanguage]
	manager.catalogues = make(map[string]map[string]string, len(raw))
	for code, messages := range raw {
		merged := make(map[string]string, len(base))
		for key, value := range base {
			merged[key] = value
		}
		for key, value := range messages {
			if strings.TrimSpace(value) != "" {
				merged[key] = value
			}
		}
		manager.catalogues[code] = merged
	}
	return manager, nil
}

func readCatalogues(localesFS fs.FS) (map[string]map[string]string, error) {
	names, err := fs.Glob(localesFS, "*.json")
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	if len(names) == 0 {
		return nil, errors.New("no locales found")
	}

	catalogues := make(map[string]map[string]string, len(names))
	for _, name := range names {
		code := strings.ToLower(strings.TrimSuffix(name, ".json"))
		content, err := fs.ReadFile(localesFS, name)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", code, err)
		}
		messages := map[string]string{}
		if err := json.Unmarshal(content, &messages); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", code, err)
		}
		if len(messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", code)
		}
		catalogues[code] = messages
	}
	return catalogues, nil
}

func (manager *Manager) DefaultLanguage() string {
	return manager.defaultLanguage
}

func (manager *Manager) SupportedLanguages() []string {
	return append([]string(nil), manager.supported...)
}

// NormalizeLanguage reduces a tag such as "en-US" or "el_GR" to a supported base language,
// or the default language.
func (manager *Manager) NormalizeLanguage(raw string) string {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(raw), "_", "-"))
	if err != nil {
		return manager.defaultLanguage
	}
	base, _ := tag.Base()
	if manager.isSupported(base.String()) {
		return base.String()
	}
	return manager.defaultLanguage
}

// DetectFromAcceptLanguage picks the best supported language for an Accept-Language header,
// honouring q-values.
func (manager *Manager) DetectFromAcceptLanguage(header string) string {
	preferred, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(preferred) == 0 {
		return manager.defaultLanguage
	}
	tag, _, confidence := manager.matcher.Match(preferred...)
	if confidence == language.No {
		return manager.defaultLanguage
	}
	return manager.NormalizeLanguage(tag.String())
}

// Messages returns the catalogue of language. The map is shared and must not be modified.
func (manager *Manager) Messages(code string) map[string]string {
	return manager.catalogues[manager.NormalizeLanguage(code)]
}

func (manager *Manager) isSupported(code string) bool {
	for _, supported := range manager.supported {
		if supported == code {
			return true
		}
	}
	return false
}

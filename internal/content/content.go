// Package content loads the static marketing copy of the landing page.
package content

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/dontwait/dontwait/internal/forms"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

type Site struct {
	Brand        string        `yaml:"brand"`
	Title        string        `yaml:"title"`
	Description  string        `yaml:"description"`
	Hero         Hero          `yaml:"hero"`
	Nav          []NavItem     `yaml:"nav"`
	HowItWorks   []Card        `yaml:"how_it_works"`
	Features     []Card        `yaml:"features"`
	Plans        []Plan        `yaml:"plans"`
	Testimonials []Testimonial `yaml:"testimonials"`
	Comparison   Comparison    `yaml:"comparison"`
	Closing      Closing       `yaml:"closing"`
}

type Hero struct {
	Heading      string `yaml:"heading"`
	Subheading   string `yaml:"subheading"`
	PrimaryCTA   string `yaml:"primary_cta"`
	SecondaryCTA string `yaml:"secondary_cta"`
}

type NavItem struct {
	Label  string `yaml:"label"`
	Anchor string `yaml:"anchor"`
}

type Card struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

// Plan is a pricing card. Code must be a package known to the lead forms.
type Plan struct {
	Code        string   `yaml:"code"`
	Price       string   `yaml:"price"`
	Highlighted bool     `yaml:"highlighted"`
	Features    []string `yaml:"features"`
}

// Label is the package name shown on the card and the thank-you screen.
func (p Plan) Label() string {
	return forms.PackageLabel(p.Code)
}

type Testimonial struct {
	Quote  string `yaml:"quote"`
	Author string `yaml:"author"`
	Role   string `yaml:"role"`
}

type Comparison struct {
	Columns []string        `yaml:"columns"`
	Rows    []ComparisonRow `yaml:"rows"`
}

type ComparisonRow struct {
	Label  string `yaml:"label"`
	Values []bool `yaml:"values"`
}

type Closing struct {
	Heading string `yaml:"heading"`
	Body    string `yaml:"body"`
	CTA     string `yaml:"cta"`
	Note    string `yaml:"note"`
}

// Catalog holds one Site per language.
type Catalog struct {
	defaultLanguage string
	sites           map[string]*Site
}

// Load reads the embedded site files.
func Load(defaultLanguage string) (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub, defaultLanguage)
}

// LoadFS reads every site.<lang>.yaml in fsys and validates it.
func LoadFS(fsys fs.FS, defaultLanguage string) (*Catalog, error) {
	names, err := fs.Glob(fsys, "site.*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list content files: %w", err)
	}
	if len(names) == 0 {
		return nil, errors.New("no content files found")
	}

	catalog := &Catalog{
		defaultLanguage: strings.ToLower(strings.TrimSpace(defaultLanguage)),
		sites:           make(map[string]*Site, len(names)),
	}
	for _, name := range names {
		language := strings.TrimSuffix(strings.TrimPrefix(path.Base(name), "site."), ".yaml")
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read content %s: %w", language, err)
		}
		site := &Site{}
		if err := yaml.Unmarshal(raw, site); err != nil {
			return nil, fmt.Errorf("parse content %s: %w", language, err)
		}
		if err := site.Validate(); err != nil {
			return nil, fmt.Errorf("content %s: %w", language, err)
		}
		catalog.sites[language] = site
	}
	if _, ok := catalog.sites[catalog.defaultLanguage]; !ok {
		return nil, fmt.Errorf("content for default language %q missing", catalog.defaultLanguage)
	}
	return catalog, nil
}

// Site returns the content for language, falling back to the default language.
func (c *Catalog) Site(language string) *Site {
	if site, ok := c.sites[strings.ToLower(strings.TrimSpace(language))]; ok {
		return site
	}
	return c.sites[c.defaultLanguage]
}

func (c *Catalog) Languages() []string {
	languages := make([]string, 0, len(c.sites))
	for language := range c.sites {
		languages = append(languages, language)
	}
	sort.Strings(languages)
	return languages
}

// Validate checks that pricing cards match the package catalogue and the comparison table is rectangular.
func (s *Site) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return errors.New("title is required")
	}
	if len(s.Plans) == 0 {
		return errors.New("at least one plan is required")
	}
	seen := make(map[string]bool, len(s.Plans))
	for _, plan := range s.Plans {
		if _, ok := forms.LookupPackage(plan.Code); !ok {
			return fmt.Errorf("plan %q is not a known package", plan.Code)
		}
		if seen[plan.Code] {
			return fmt.Errorf("plan %q listed twice", plan.Code)
		}
		seen[plan.Code] = true
	}
	for _, row := range s.Comparison.Rows {
		if len(row.Values) != len(s.Comparison.Columns) {
			return fmt.Errorf("comparison row %q has %d values for %d columns", row.Label, len(row.Values), len(s.Comparison.Columns))
		}
	}
	return nil
}

package api

import (
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

// parsePageTemplates parses base.html, the page and every partial into one set per page,
// so pages can embed fragments that are also served alone.
func parsePageTemplates(fsys fs.FS, funcMap template.FuncMap, pages []string, partialFiles []string) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		files := append([]string{"base.html", page + ".html"}, partialFiles...)
		parsed, err := template.New("base").Funcs(funcMap).ParseFS(fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("parse page template %s: %w", page, err)
		}
		templates[page] = parsed
	}
	return templates, nil
}

func parsePartialTemplates(fsys fs.FS, funcMap template.FuncMap, partialFiles []string) (map[string]*template.Template, error) {
	partials := make(map[string]*template.Template, len(partialFiles))
	for _, partial := range partialFiles {
		name := strings.TrimSuffix(partial, ".html")
		parsed, err := template.New(name).Funcs(funcMap).ParseFS(fsys, partialFiles...)
		if err != nil {
			return nil, fmt.Errorf("parse partial %s: %w", partial, err)
		}
		partials[name] = parsed
	}
	return partials, nil
}

package api

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

func newTemplateFuncMap() template.FuncMap {
	return template.FuncMap{
		"t":             templateTranslate,
		"tf":            templateTranslatef,
		"percent":       templatePercent,
		"isActiveRoute": isActiveTemplateRoute,
		"dict":          templateDict,
	}
}

func templateTranslate(messages map[string]string, key string) string {
	return translateMessage(messages, key)
}

func templateTranslatef(messages map[string]string, key string, args ...any) string {
	return fmt.Sprintf(translateMessage(messages, key), args...)
}

// templatePercent turns a 0..1 progress fill into a whole percentage.
func templatePercent(fill float64) int {
	if fill <= 0 {
		return 0
	}
	if fill >= 1 {
		return 100
	}
	return int(math.Round(fill * 100))
}

func isActiveTemplateRoute(currentPath string, route string) bool {
	path := strings.TrimSpace(currentPath)
	if path == "" {
		return route == "/"
	}
	if route == "/" {
		return path == "/" || strings.HasPrefix(path, "/?")
	}
	return path == route || strings.HasPrefix(path, route+"?") || strings.HasPrefix(path, route+"/")
}

func templateDict(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("dict requires key-value pairs")
	}
	result := make(map[string]any, len(values)/2)
	for index := 0; index < len(values); index += 2 {
		key, ok := values[index].(string)
		if !ok {
			return nil, fmt.Errorf("dict key at index %d is not a string", index)
		}
		result[key] = values[index+1]
	}
	return result, nil
}

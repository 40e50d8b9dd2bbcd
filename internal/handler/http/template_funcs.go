package httphandler

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/lllypuk/userdesk/internal/domain/user"
	"github.com/lllypuk/userdesk/internal/store"
)

// TemplateFuncs returns the custom template functions for HTML templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// String helpers
		"truncate": truncate,
		"lower":    strings.ToLower,
		"upper":    strings.ToUpper,
		"initials": initials,

		// Conditional helpers
		"ne":      ne,
		"lt":      lt,
		"gt":      gt,
		"not":     not,
		"default": defaultValue,

		// Collection helpers
		"seq":  seq,
		"dict": dict,

		// Form helpers
		"fieldError": fieldError,
		"hasError":   hasError,

		// Route helpers
		"pageURL":   pageURL,
		"editURL":   editURL,
		"deleteURL": deleteURL,

		// Math helpers
		"add": add,
		"sub": sub,
	}
}

// String helpers

const ellipsisSize = 3

// truncate truncates a string to n characters, adding "..." if truncated.
// Arguments are (n int, s string) to work with template pipes: {{.Email | truncate 30}}
func truncate(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= ellipsisSize {
		return string(r[:n])
	}
	return string(r[:n-ellipsisSize]) + "..."
}

// initials returns the upper-cased first letters of the first and last word.
func initials(name string) string {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(string([]rune(parts[0])[:1]))
	default:
		first := []rune(parts[0])[:1]
		last := []rune(parts[len(parts)-1])[:1]
		return strings.ToUpper(string(first) + string(last))
	}
}

// Conditional helpers

func ne(a, b any) bool {
	return a != b
}

func lt(a, b int) bool {
	return a < b
}

func gt(a, b int) bool {
	return a > b
}

func not(a bool) bool {
	return !a
}

func defaultValue(def, val any) any {
	if val == nil || val == "" || val == 0 || val == false {
		return def
	}
	return val
}

// Collection helpers

func seq(start, end int) []int {
	if end < start {
		return nil
	}
	result := make([]int, end-start+1)
	for i := range result {
		result[i] = start + i
	}
	return result
}

func dict(pairs ...any) map[string]any {
	result := make(map[string]any)
	for i := 0; i < len(pairs)-1; i += 2 {
		key, ok := pairs[i].(string)
		if ok {
			result[key] = pairs[i+1]
		}
	}
	return result
}

// Form helpers

func fieldError(errs user.FormErrors, field string) string {
	return errs.Get(field)
}

func hasError(errs user.FormErrors, field string) bool {
	return errs.Get(field) != ""
}

// Route helpers

func pageURL(page int) string {
	return store.RouteUsers + "/page/" + strconv.Itoa(page)
}

func editURL(id int64) string {
	return store.RouteUsers + "/edit/" + strconv.FormatInt(id, 10)
}

func deleteURL(id int64) string {
	return store.RouteUsers + "/" + strconv.FormatInt(id, 10) + "/delete"
}

// Math helpers

func add(a, b int) int {
	return a + b
}

func sub(a, b int) int {
	return a - b
}

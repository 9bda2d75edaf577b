package api

import "testing"

func TestSanitizeRedirectPath(t *testing.T) {
	t.Parallel()

	fallback := "/"

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty uses fallback", raw: "", want: fallback},
		{name: "absolute url blocked", raw: "https://evil.example", want: fallback},
		{name: "protocol relative blocked", raw: "//evil.example", want: fallback},
		{name: "path without leading slash blocked", raw: "privacy-policy", want: fallback},
		{name: "valid local path kept", raw: "/privacy-policy", want: "/privacy-policy"},
		{name: "valid local path with query kept", raw: "/?form=plan", want: "/?form=plan"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got := sanitizeRedirectPath(test.raw, fallback)
			if got != test.want {
				t.Fatalf("sanitizeRedirectPath(%q) = %q, want %q", test.raw, got, test.want)
			}
		})
	}
}

func TestFormDialogPath(t *testing.T) {
	t.Parallel()

	if got := formDialogPath("chat-email"); got != "/?form=chat-email#lead-form" {
		t.Fatalf("formDialogPath(chat-email) = %q", got)
	}
}

func TestTemplatePercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fill float64
		want int
	}{
		{fill: -1, want: 0},
		{fill: 0, want: 0},
		{fill: 1.0 / 3.0, want: 33},
		{fill: 2.0 / 3.0, want: 67},
		{fill: 1, want: 100},
		{fill: 4, want: 100},
	}
	for _, test := range tests {
		if got := templatePercent(test.fill); got != test.want {
			t.Fatalf("templatePercent(%v) = %d, want %d", test.fill, got, test.want)
		}
	}
}

package authflow

import (
	"fmt"
	"net/url"
	"strings"
)

// Fallback selector lists for login forms in the wild. Sites rarely agree on
// field naming so each lookup walks the list until something matches.
var DefaultUsernameSelectors = []string{
	"input[name=username]",
	"#username",
	"#email",
	"input[name=email]",
	"input[type=email]",
	"input[type=text]",
	`input[placeholder=Username]`,
	`input[placeholder=Email]`,
}

var DefaultPasswordSelectors = []string{
	"input[name=password]",
	"#password",
	"input[type=password]",
}

var DefaultTotpSelectors = []string{
	"input[name=totp]",
	"input[name=code]",
	"input[name=token]",
	"input[name=authenticator_code]",
	"input[name=verification_code]",
	"#totp",
	"#code",
	"#token",
	`input[placeholder=Code]`,
	`input[placeholder=TOTP]`,
}

var DefaultSubmitSelectors = []string{
	"input[type=submit]",
	"button[type=submit]",
}

// SelectorsForField prepends name/id selectors for a configured field name
// to a default fallback list.
func SelectorsForField(field string, defaults []string) []string {
	if field == "" {
		return defaults
	}
	out := []string{
		fmt.Sprintf("input[name=%s]", field),
		"#" + field,
	}
	return append(out, defaults...)
}

// substrings of a post-login url that indicate the landing page
var confirmedUrlMarkers = []string{"dashboard", "overview", "profile", "home"}

// loginConfirmed decides whether the browser's current url looks like a
// logged-in landing page rather than the login form.
func loginConfirmed(currentUrl, loginUrl string) bool {
	current := strings.ToLower(currentUrl)
	if normalizeUrl(current) == normalizeUrl(strings.ToLower(loginUrl)) {
		return false
	}
	for _, marker := range confirmedUrlMarkers {
		if strings.Contains(current, marker) {
			return true
		}
	}
	return !strings.Contains(current, "login") && !strings.Contains(current, "auth")
}

func normalizeUrl(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	u.Fragment = ""
	u.RawQuery = ""
	return strings.TrimRight(u.String(), "/")
}

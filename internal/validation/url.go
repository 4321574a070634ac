package validation

import (
	"net/url"
	"strings"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
)

// BaseURL checks that raw is an absolute http(s) URL with no query or
// fragment, suitable as the root of a remote service.
func BaseURL(raw, field string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return errs.ValidationError{Field: field, Message: "invalid URL format"}
	}
	scheme := strings.ToLower(parsed.Scheme)
	switch {
	case scheme != "http" && scheme != "https":
		return errs.ValidationError{Field: field, Message: "URL scheme must be http or https"}
	case parsed.Host == "":
		return errs.ValidationError{Field: field, Message: "URL must include a host"}
	case parsed.RawQuery != "" || parsed.Fragment != "":
		return errs.ValidationError{Field: field, Message: "base URL must not contain a query or fragment"}
	}
	return nil
}

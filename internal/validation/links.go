// Package validation checks the links of a document for targets that are
// unsafe or will not resolve once the email leaves the sender.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/preview"
)

// Schemes accepted in email links.
var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// Merge tags filled in by sending platforms: {{url}}, *|UNSUB|*, %%link%%.
var placeholder = regexp.MustCompile(`^(\{\{.+\}\}|\*\|.+\|\*|%%.+%%)$`)

// ValidateLink returns why href is not a usable email link, or nil.
func ValidateLink(href string) error {
	if strings.TrimSpace(href) == "" {
		return fmt.Errorf("link is empty")
	}
	if strings.ContainsAny(href, " \t\r\n") {
		return fmt.Errorf("link contains whitespace")
	}
	if placeholder.MatchString(href) || strings.HasPrefix(href, "#") {
		return nil
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch {
	case scheme == "":
		return fmt.Errorf("relative link will not resolve in a mail client")
	case !allowedSchemes[scheme]:
		return fmt.Errorf("scheme %q is not allowed (use http, https, mailto or tel)", parsed.Scheme)
	case (scheme == "http" || scheme == "https") && parsed.Host == "":
		return fmt.Errorf("URL must have a host")
	case scheme == "mailto" && parsed.Opaque == "" && parsed.RawQuery == "":
		return fmt.Errorf("mailto link has no recipient")
	}
	return nil
}

// CheckLinks validates links and returns one error per bad link, in order.
func CheckLinks(links []preview.Link) []*mailerrors.MailError {
	var problems []*mailerrors.MailError
	for _, l := range links {
		if err := ValidateLink(l.Href); err != nil {
			problems = append(problems, mailerrors.NewValidationError(mailerrors.ErrCodeInvalidLink,
				fmt.Sprintf("%s: %q", err.Error(), l.Href)).
				WithBlockType(l.BlockType).
				WithContext("href", l.Href).
				WithContext("block_id", l.BlockID))
		}
	}
	return problems
}

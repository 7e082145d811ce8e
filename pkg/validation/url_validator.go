package validation

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	apperrors "github.com/anime-shed/skintone-inspector/internal/errors"
)

// URLValidator checks remote image URLs before they are fetched
type URLValidator struct {
	allowedSchemes []string
	// allowedHosts holds exact hosts or "*.suffix" wildcards; empty allows all
	allowedHosts []string
}

// NewURLValidator creates a URL validator accepting any http(s) host
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{},
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL validates a single image URL
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// ValidateBatch checks the URL count and every URL, reporting the first
// offending position.
func (v *URLValidator) ValidateBatch(urls []string, maxURLs int) error {
	if len(urls) == 0 {
		return apperrors.NewValidationError("at least one URL is required", nil)
	}
	if maxURLs > 0 && len(urls) > maxURLs {
		return apperrors.NewValidationError(fmt.Sprintf("too many URLs: %d (limit %d)", len(urls), maxURLs), nil)
	}
	for i, u := range urls {
		if err := v.ValidateImageURL(u); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("urls[%d] is invalid", i), err)
		}
	}
	return nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	return slices.Contains(v.allowedSchemes, strings.ToLower(scheme))
}

// isHostAllowed returns true if no host restrictions are set
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	return slices.ContainsFunc(v.allowedHosts, func(allowed string) bool {
		if suffix, ok := strings.CutPrefix(allowed, "*"); ok {
			return strings.HasSuffix(host, suffix)
		}
		return host == allowed
	})
}

// Package validation checks the remote endpoints the service is configured
// with: the scene catalog and the Overpass API.
package validation

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

// Endpoints validates base URLs that request paths are appended to.
type Endpoints struct {
	Schemes []string
	// Hosts restricts the hostname; empty allows any host.
	Hosts []string
}

// DefaultEndpoints accepts any http or https host.
func DefaultEndpoints() Endpoints {
	return Endpoints{Schemes: []string{"http", "https"}}
}

// Check parses endpoint, naming setting in every error. An endpoint must have
// a scheme and host and must not carry credentials, a query or a fragment.
func (e Endpoints) Check(setting, endpoint string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, apperrors.NewValidationError(setting+" is empty", nil)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s %q is not a URL", setting, endpoint), err)
	}
	if !slices.Contains(e.Schemes, u.Scheme) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s scheme %q is not one of %s", setting, u.Scheme, strings.Join(e.Schemes, ", ")), nil)
	}
	if u.Hostname() == "" {
		return nil, apperrors.NewValidationError(setting+" has no host", nil)
	}
	if len(e.Hosts) > 0 && !slices.Contains(e.Hosts, u.Hostname()) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s host %q is not allowed", setting, u.Hostname()), nil)
	}
	if u.User != nil {
		return nil, apperrors.NewValidationError(setting+" must not embed credentials", nil)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, apperrors.NewValidationError(setting+" must not carry a query or fragment", nil)
	}
	return u, nil
}

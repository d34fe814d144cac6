package storefront

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid storefront config")

	// ErrUnexpectedStatus is wrapped by RemoteFetchError for non-2xx responses
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrDescriptionMissing is returned when a detail page has no description element
	ErrDescriptionMissing = errors.New("description element not found")
)

// maxErrorBody caps how much of a failed response body is kept on the error.
const maxErrorBody = 2048

// RemoteFetchError describes a transport or HTTP failure against the catalog
// API or a detail page. StatusCode is zero when no response was received.
type RemoteFetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *RemoteFetchError) Unwrap() error {
	return e.Err
}

// ScrapeError is returned when a detail page was fetched but lacks the
// expected structure.
type ScrapeError struct {
	Slug   string
	Reason error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.Slug, e.Reason)
}

func (e *ScrapeError) Unwrap() error {
	return e.Reason
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}

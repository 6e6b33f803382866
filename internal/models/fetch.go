package models

// FetchStatus is the terminal outcome of a fetch
type FetchStatus string

const (
	FetchOK           FetchStatus = "ok"
	FetchHTTPError    FetchStatus = "http_error"
	FetchBlocked      FetchStatus = "blocked"
	FetchNetworkError FetchStatus = "network_error"
	FetchTimeout      FetchStatus = "timeout"
)

// FetchResult is produced per request and consumed immediately by the extractor
type FetchResult struct {
	URL        string      `json:"url"`
	Status     FetchStatus `json:"status"`
	StatusCode int         `json:"status_code,omitempty"`
	Body       string      `json:"-"`
	Attempts   int         `json:"attempts"`
	Err        error       `json:"-"`
}

// IsOK reports whether the fetch produced a usable body
func (r FetchResult) IsOK() bool {
	return r.Status == FetchOK
}

// Failure converts a non-OK result into a classified failure
func (r FetchResult) Failure() *Failure {
	switch r.Status {
	case FetchOK:
		return nil
	case FetchBlocked:
		return NewFailure(FailureBlocked, r.URL, r.Err)
	case FetchHTTPError:
		return NewFailure(FailureHTTP, r.URL, r.Err)
	default:
		return NewFailure(FailureNetwork, r.URL, r.Err)
	}
}

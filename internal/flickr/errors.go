package flickr

import "errors"

// Search failures. Every error returned by Client wraps exactly one of these.
var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("flickr: network error")
	// ErrInput means the service rejected the request (stat "fail" or an error message).
	ErrInput = errors.New("flickr: request rejected")
	// ErrUnknown means a successful response lacked the expected fields.
	ErrUnknown = errors.New("flickr: unexpected response")
	// ErrDecode means the response body was not valid JSON.
	ErrDecode = errors.New("flickr: malformed response")
)

package flickr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// searchResponse is the subset of a flickr.photos.search reply the client reads.
type searchResponse struct {
	Stat    string       `json:"stat"`
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Photos  *photosBlock `json:"photos"`
}

type photosBlock struct {
	Page    flexInt      `json:"page"`
	Pages   *flexInt     `json:"pages"`
	PerPage flexInt      `json:"perpage"`
	Total   flexInt      `json:"total"`
	Photo   []photoEntry `json:"photo"`
}

type photoEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URLQ  string `json:"url_q"`
}

// rejected reports whether the service refused the request.
func (r *searchResponse) rejected() bool {
	return r.Stat == "fail" || r.Message != ""
}

// flexInt decodes integers the API sends either as numbers or as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("flexInt: %w", err)
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

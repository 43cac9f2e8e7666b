package pocket

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// API paths under the versioned base URL.
const (
	PathRequest   = "/oauth/request"
	PathAuthorize = "/oauth/authorize"
	PathAdd       = "/add"
	PathModify    = "/send"
	PathRetrieve  = "/get"
)

// Tags encoding the snooze state on the Pocket side.
const (
	TagSnoozed   = "snoozed"
	TagUnsnoozed = "unsnoozed"
)

// Item is the authoritative Pocket record for a saved page. Only the fields
// the snooze core reads are mapped.
type Item struct {
	ItemID        string `json:"item_id"`
	URL           string `json:"url"`
	GivenURL      string `json:"given_url"`
	ResolvedURL   string `json:"resolved_url"`
	Title         string `json:"title"`
	GivenTitle    string `json:"given_title"`
	ResolvedTitle string `json:"resolved_title"`
}

// BestURL returns the most resolved URL variant Pocket reported.
func (i Item) BestURL() string {
	switch {
	case i.ResolvedURL != "":
		return i.ResolvedURL
	case i.URL != "":
		return i.URL
	default:
		return i.GivenURL
	}
}

// BestTitle returns the most resolved title variant Pocket reported.
func (i Item) BestTitle() string {
	switch {
	case i.ResolvedTitle != "":
		return i.ResolvedTitle
	case i.Title != "":
		return i.Title
	default:
		return i.GivenTitle
	}
}

// Action is one entry of a batched /send modification.
type Action struct {
	Action string `json:"action"`
	ItemID string `json:"item_id"`
	Tags   string `json:"tags,omitempty"`
}

// RetrieveOptions narrows a /get call. Zero values are omitted from the
// request.
type RetrieveOptions struct {
	State       string
	Tag         string
	DetailsType string
	Since       int64
}

type addResponse struct {
	Item Item `json:"item"`
}

type requestTokenResponse struct {
	Code string `json:"code"`
}

type authorizeResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
}

// retrieveResponse handles the /get quirk where an empty result set arrives
// as a JSON array instead of an object.
type retrieveResponse struct {
	List map[string]Item
}

func (r *retrieveResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		List json.RawMessage `json:"list"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw.List)
	if len(trimmed) == 0 || trimmed[0] == '[' {
		r.List = map[string]Item{}
		return nil
	}
	if err := json.Unmarshal(trimmed, &r.List); err != nil {
		return fmt.Errorf("failed to decode item list: %w", err)
	}
	return nil
}

package domain

import (
	"encoding/json"
	"fmt"
)

// PageSize is the number of source records requested per bulk page
const PageSize = 250

// DateFilter narrows a bulk query to records created inside (From, To)
type DateFilter struct {
	From string `json:"sync_from,omitempty"`
	To   string `json:"sync_to,omitempty"`
}

// Query renders the filter in the source search syntax, or "" when unset
func (f DateFilter) Query() string {
	if f.From == "" || f.To == "" {
		return ""
	}
	return fmt.Sprintf("created_at:>%s created_at:<%s", f.From, f.To)
}

// Page is one cursor page of raw source records
type Page struct {
	Nodes       []json.RawMessage
	EndCursor   string
	HasNextPage bool
}

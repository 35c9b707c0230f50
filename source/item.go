// Package source defines the domain models and the adapter contract for site content retrieval.
package source

// Category is one browsable section of a site.
type Category struct {
	ID      string   `json:"type_id"`
	Name    string   `json:"type_name"`
	Filters []Filter `json:"filters,omitempty"`
}

// Filter is one refinement axis a category supports (year, genre, region).
type Filter struct {
	Key    string        `json:"key"`
	Name   string        `json:"name"`
	Values []FilterValue `json:"value"`
}

// FilterValue is one selectable option of a Filter.
type FilterValue struct {
	Name  string `json:"n"`
	Value string `json:"v"`
}

// Item is one piece of content in the normalized model. List operations fill
// only the list fields; Detail fills everything.
type Item struct {
	ID      string `json:"vod_id"`
	Name    string `json:"vod_name"`
	Pic     string `json:"vod_pic"`
	Remarks string `json:"vod_remarks"`

	// Detail fields.
	Year     string `json:"vod_year,omitempty"`
	Area     string `json:"vod_area,omitempty"`
	Actor    string `json:"vod_actor,omitempty"`
	Director string `json:"vod_director,omitempty"`
	Content  string `json:"vod_content,omitempty"`

	// Flags holds the play-source groupings, in site declaration order.
	Flags []Flag `json:"flags,omitempty"`

	// SiteKey identifies the adapter that produced the item; set by the
	// manager during federated operations.
	SiteKey string `json:"site_key,omitempty"`
}

// Home is the landing payload: categories plus recommended items.
type Home struct {
	Categories []Category `json:"class"`
	Items      []Item     `json:"list"`
}

// ItemPage is one page of a category listing.
type ItemPage struct {
	Items     []Item `json:"list"`
	Page      int    `json:"page"`
	PageCount int    `json:"pagecount"`
	Limit     int    `json:"limit"`
	Total     int    `json:"total"`
}

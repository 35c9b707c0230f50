// Package source defines the domain models and the adapter contract for site content retrieval.
package source

import (
	"context"
	"errors"
)

// Sentinel errors shared by every adapter variant.
var (
	// ErrSearchUnsupported is returned without any I/O when a site is not
	// searchable.
	ErrSearchUnsupported = errors.New("site does not support search")

	// ErrLoginRequired is returned without any I/O when a cloud-drive site
	// has no stored credential.
	ErrLoginRequired = errors.New("login required")

	// ErrNotFound is returned when a requested content id does not exist on
	// the site.
	ErrNotFound = errors.New("content not found")
)

// Source defines the five-operation contract every site adapter implements.
//
// Operations return empty results rather than errors when a site responds but
// yields nothing extractable; errors are reserved for I/O failures and the
// sentinel capability errors above.
type Source interface {
	// Key returns the unique identifier of the site this adapter serves.
	Key() string

	// Name returns the human-readable site name.
	Name() string

	// Home retrieves the site's landing categories and recommended items.
	// When filter is true, per-category filter definitions are included.
	Home(ctx context.Context, filter bool) (Home, error)

	// Category retrieves one page of a category listing. extend carries
	// filter selections keyed by filter id.
	Category(ctx context.Context, tid string, page int, filter bool, extend map[string]string) (ItemPage, error)

	// Detail retrieves full detail for the given content ids, including
	// play flags and episode lists.
	Detail(ctx context.Context, ids []string) ([]Item, error)

	// Search queries the site. quick requests a cheaper, truncated search
	// when the site distinguishes the two.
	Search(ctx context.Context, keyword string, quick bool) ([]Item, error)

	// Player resolves one episode of one play flag into a playable result.
	// vipFlags lists flag names that require an external parse endpoint.
	Player(ctx context.Context, flag, id string, vipFlags []string) (Playback, error)
}

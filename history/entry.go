package history

import (
	"fmt"
	"time"

	"github.com/ovod-cli/ovod/source"
)

// Entry represents the last-watched state of one title on one site. A title
// keeps a single entry: saving a later episode replaces the earlier one.
type Entry struct {
	SiteKey string `json:"site_key"`
	VodID   string `json:"vod_id"`
	VodName string `json:"vod_name"`
	Pic     string `json:"pic,omitempty"`

	Flag        string `json:"flag"`
	EpisodeName string `json:"episode_name"`
	EpisodeURL  string `json:"episode_url"`

	// WatchedPercentage is the furthest playback position observed, 0..100.
	WatchedPercentage float64   `json:"watched_percentage"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (e *Entry) encode() string {
	return e.VodID + "@" + e.SiteKey
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s : %s / %s", e.VodName, e.Flag, e.EpisodeName)
}

func newEntry(siteKey string, item source.Item, flag string, episode source.Episode) *Entry {
	return &Entry{
		SiteKey:     siteKey,
		VodID:       item.ID,
		VodName:     item.Name,
		Pic:         item.Pic,
		Flag:        flag,
		EpisodeName: episode.Name,
		EpisodeURL:  episode.URL,
	}
}

// Package history tracks and persists per-title playback state.
package history

import (
	"time"

	"github.com/metafates/gache"

	"github.com/ovod-cli/ovod/filesystem"
	"github.com/ovod-cli/ovod/source"
	"github.com/ovod-cli/ovod/where"
)

var now = func() time.Time { return time.Now().UTC() }

// cacher is the disk-backed registry of playback records, keyed by
// "vodID@siteKey".
var cacher = gache.New[map[string]*Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every saved playback record.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Save records that an episode of a title was resolved for playback. A later
// episode replaces the entry; re-watching the same episode keeps the maximum
// observed percentage so progress never regresses.
func Save(siteKey string, item source.Item, flag string, episode source.Episode, percentage float64) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	record := newEntry(siteKey, item, flag, episode)
	if existing, exists := saved[record.encode()]; exists &&
		existing.EpisodeURL == record.EpisodeURL && percentage < existing.WatchedPercentage {
		percentage = existing.WatchedPercentage
	}
	record.WatchedPercentage = percentage
	record.UpdatedAt = now()

	saved[record.encode()] = record
	return cacher.Set(saved)
}

// Remove deletes one playback record.
func Remove(entry *Entry) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, entry.encode())
	return cacher.Set(saved)
}

// Package provider constructs site adapters and coordinates federated operations across them.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/ovod-cli/ovod/log"
	"github.com/ovod-cli/ovod/sniff"
	"github.com/ovod-cli/ovod/source"
)

// ResolvePlay turns an episode reference into a final playable URL. The
// site adapter resolves first; its result then routes through the parse
// endpoints (when the flag needs external parsing) or the sniffer (when the
// result is a page rather than direct media).
func (m *Manager) ResolvePlay(ctx context.Context, key, flag, id string) (source.Playback, error) {
	s, err := m.Source(key)
	if err != nil {
		return source.Playback{}, err
	}

	pb, err := s.Player(ctx, flag, id, m.config.Flags)
	if err != nil {
		return source.Playback{}, err
	}
	if pb.URL == "" {
		return source.Playback{}, fmt.Errorf("site %s produced no play url", key)
	}

	if pb.Parse {
		return m.parsePlay(ctx, pb)
	}
	if pb.Sniff && !sniff.IsMediaURL(pb.URL) {
		if media, ok := sniff.Page(ctx, m.client, pb.URL, pb.Headers); ok {
			pb.URL = media
			pb.Sniff = false
		}
	}
	return pb, nil
}

// parsePlay tries each configured parse endpoint in order until one yields a
// media URL. JSON-type endpoints are queried directly; web-type endpoints
// return a player page that is sniffed.
func (m *Manager) parsePlay(ctx context.Context, pb source.Playback) (source.Playback, error) {
	for _, p := range m.config.Parses {
		target := p.URL + url.QueryEscape(pb.URL)

		switch p.Type {
		case 1: // JSON endpoint
			resp, err := m.client.Get(ctx, target, pb.Headers)
			if err != nil {
				log.Warnf("parse %s failed: %v", p.Name, err)
				continue
			}
			var decoded struct {
				URL    string            `json:"url"`
				Header map[string]string `json:"header"`
			}
			if err := json.Unmarshal(resp.Body, &decoded); err != nil || decoded.URL == "" {
				continue
			}
			pb.URL = decoded.URL
			if len(decoded.Header) > 0 {
				pb.Headers = decoded.Header
			}
			pb.Parse = false
			return pb, nil
		default: // web endpoint, sniff the player page
			if media, ok := sniff.Page(ctx, m.client, target, pb.Headers); ok {
				pb.URL = media
				pb.Parse = false
				return pb, nil
			}
		}
	}
	return pb, fmt.Errorf("no parse endpoint resolved %s", pb.URL)
}

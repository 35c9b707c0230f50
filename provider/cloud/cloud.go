// Package cloud implements the adapter for Alist-style cloud drive servers.
//
// Drive folders become categories, media files become items. Every
// operation requires a stored credential; without one the adapter fails
// fast with source.ErrLoginRequired before any network I/O.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/ovod-cli/ovod/auth"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/site"
	"github.com/ovod-cli/ovod/source"
)

// tokenFor is swapped in tests; production resolves through the keyring.
var tokenFor = auth.GetToken

// Adapter implements source.Source for one drive server.
type Adapter struct {
	desc   site.Descriptor
	server string
	client *network.Client
}

type ext struct {
	Server string `json:"server"`
}

// New builds the adapter. The ext blob carries the server address; a missing
// blob falls back to the API field.
func New(desc site.Descriptor, client *network.Client) (*Adapter, error) {
	server := desc.API
	if len(desc.Ext) > 0 {
		var e ext
		if err := json.Unmarshal(desc.Ext, &e); err == nil && e.Server != "" {
			server = e.Server
		}
	}
	if server == "" {
		return nil, fmt.Errorf("cloud site %q has no server address", desc.Key)
	}
	return &Adapter{desc: desc, server: strings.TrimSuffix(server, "/"), client: client}, nil
}

func (a *Adapter) Key() string  { return a.desc.Key }
func (a *Adapter) Name() string { return a.desc.Name }

// token fetches the stored credential for the drive host. Called first in
// every operation so the login-required failure happens before any I/O.
func (a *Adapter) token() (string, error) {
	u, err := url.Parse(a.server)
	if err != nil {
		return "", source.ErrLoginRequired
	}
	tok, err := tokenFor(u.Hostname())
	if err != nil || tok == "" {
		return "", source.ErrLoginRequired
	}
	return tok, nil
}

// listEntry is one node of the drive's fs/list response.
type listEntry struct {
	Name     string `json:"name"`
	IsDir    bool   `json:"is_dir"`
	Sign     string `json:"sign"`
	Thumb    string `json:"thumb"`
	Modified string `json:"modified"`
}

type listResponse struct {
	Code int `json:"code"`
	Data struct {
		Content []listEntry `json:"content"`
		Total   int         `json:"total"`
	} `json:"data"`
	Message string `json:"message"`
}

type getResponse struct {
	Code int `json:"code"`
	Data struct {
		RawURL string `json:"raw_url"`
		Sign   string `json:"sign"`
	} `json:"data"`
	Message string `json:"message"`
}

func (a *Adapter) Home(ctx context.Context, _ bool) (source.Home, error) {
	token, err := a.token()
	if err != nil {
		return source.Home{}, err
	}

	entries, err := a.list(ctx, token, "/")
	if err != nil {
		return source.Home{}, err
	}

	home := source.Home{}
	for _, e := range entries {
		if e.IsDir {
			home.Categories = append(home.Categories, source.Category{
				ID:   "/" + e.Name,
				Name: e.Name,
			})
		} else if isMedia(e.Name) {
			home.Items = append(home.Items, a.item("/", e))
		}
	}
	return home, nil
}

func (a *Adapter) Category(ctx context.Context, tid string, page int, _ bool, _ map[string]string) (source.ItemPage, error) {
	token, err := a.token()
	if err != nil {
		return source.ItemPage{}, err
	}

	entries, err := a.list(ctx, token, tid)
	if err != nil {
		return source.ItemPage{}, err
	}

	result := source.ItemPage{Page: 1, PageCount: 1}
	for _, e := range entries {
		if e.IsDir {
			// Nested folders surface as browsable pseudo-items.
			result.Items = append(result.Items, source.Item{
				ID:      path.Join(tid, e.Name),
				Name:    e.Name,
				Remarks: "文件夹",
			})
		} else if isMedia(e.Name) {
			result.Items = append(result.Items, a.item(tid, e))
		}
	}
	result.Total = len(result.Items)
	return result, nil
}

func (a *Adapter) Detail(ctx context.Context, ids []string) ([]source.Item, error) {
	token, err := a.token()
	if err != nil {
		return nil, err
	}

	var out []source.Item
	for _, id := range ids {
		dir := path.Dir(id)
		entries, err := a.list(ctx, token, dir)
		if err != nil {
			continue
		}

		// Sibling media files of the requested one become the episode
		// list, so a season folder plays through in order.
		flag := source.Flag{Name: a.desc.Name}
		for _, e := range entries {
			if e.IsDir || !isMedia(e.Name) {
				continue
			}
			flag.Episodes = append(flag.Episodes, source.Episode{
				Name: strings.TrimSuffix(e.Name, path.Ext(e.Name)),
				URL:  path.Join(dir, e.Name),
			})
		}
		if len(flag.Episodes) == 0 {
			continue
		}

		out = append(out, source.Item{
			ID:    id,
			Name:  strings.TrimSuffix(path.Base(id), path.Ext(id)),
			Flags: []source.Flag{flag},
		})
	}
	if len(out) == 0 && len(ids) > 0 {
		return nil, source.ErrNotFound
	}
	return out, nil
}

func (a *Adapter) Search(ctx context.Context, keyword string, _ bool) ([]source.Item, error) {
	token, err := a.token()
	if err != nil {
		return nil, err
	}
	if !a.desc.Searchable {
		return nil, source.ErrSearchUnsupported
	}

	body, err := json.Marshal(map[string]any{
		"parent":   "/",
		"keywords": keyword,
		"page":     1,
		"per_page": 100,
	})
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Post(ctx, a.server+"/api/fs/search", "application/json", body, a.headers(token))
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Code int `json:"code"`
		Data struct {
			Content []struct {
				Parent string `json:"parent"`
				Name   string `json:"name"`
				IsDir  bool   `json:"is_dir"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, err
	}

	var out []source.Item
	for _, e := range decoded.Data.Content {
		if e.IsDir || !isMedia(e.Name) {
			continue
		}
		out = append(out, source.Item{
			ID:   path.Join(e.Parent, e.Name),
			Name: e.Name,
		})
	}
	return out, nil
}

func (a *Adapter) Player(ctx context.Context, _ string, id string, _ []string) (source.Playback, error) {
	token, err := a.token()
	if err != nil {
		return source.Playback{}, err
	}

	body, err := json.Marshal(map[string]string{"path": id})
	if err != nil {
		return source.Playback{}, err
	}

	resp, err := a.client.Post(ctx, a.server+"/api/fs/get", "application/json", body, a.headers(token))
	if err != nil {
		return source.Playback{}, err
	}

	var decoded getResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return source.Playback{}, err
	}
	if decoded.Code == 401 || decoded.Code == 403 {
		return source.Playback{}, source.ErrLoginRequired
	}
	if decoded.Data.RawURL == "" {
		return source.Playback{}, fmt.Errorf("drive %s: %s", a.desc.Key, decoded.Message)
	}

	return source.Playback{
		URL:     decoded.Data.RawURL,
		Headers: map[string]string{"Authorization": token},
	}, nil
}

func (a *Adapter) list(ctx context.Context, token, dir string) ([]listEntry, error) {
	body, err := json.Marshal(map[string]any{"path": dir, "page": 1, "per_page": 0})
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Post(ctx, a.server+"/api/fs/list", "application/json", body, a.headers(token))
	if err != nil {
		return nil, err
	}

	var decoded listResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, err
	}
	if decoded.Code == 401 || decoded.Code == 403 {
		return nil, source.ErrLoginRequired
	}
	if decoded.Code != 200 {
		return nil, fmt.Errorf("drive %s: %s", a.desc.Key, decoded.Message)
	}
	return decoded.Data.Content, nil
}

func (a *Adapter) headers(token string) map[string]string {
	h := map[string]string{"Authorization": token}
	for k, v := range a.desc.Headers {
		h[k] = v
	}
	return h
}

func (a *Adapter) item(dir string, e listEntry) source.Item {
	return source.Item{
		ID:      path.Join(dir, e.Name),
		Name:    strings.TrimSuffix(e.Name, path.Ext(e.Name)),
		Pic:     e.Thumb,
		Remarks: e.Modified,
	}
}

var mediaExts = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".wmv": true,
	".flv": true, ".ts": true, ".m2ts": true, ".webm": true, ".m3u8": true,
	".mp3": true, ".flac": true, ".aac": true, ".m4a": true,
}

func isMedia(name string) bool {
	return mediaExts[strings.ToLower(path.Ext(name))]
}

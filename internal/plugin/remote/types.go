// Package remote fetches plugin metadata from the update server.
package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Metadata is the JSON document served at /api/plugin/{slug}.
//
// Decoding is lenient: scalar fields accept strings, numbers and booleans,
// and sections/banners accept an object, an array or null. Values of any
// other shape are left empty.
type Metadata struct {
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Author        string            `json:"author"`
	AuthorProfile string            `json:"author_profile"`
	Version       string            `json:"version"`
	Tested        string            `json:"tested"`
	Requires      string            `json:"requires"`     // minimum host version
	RequiresPHP   string            `json:"requires_php"` // minimum runtime version
	DownloadURL   string            `json:"download_url"`
	LastUpdated   string            `json:"last_updated"`
	Sections      map[string]string `json:"sections"`
	Banners       map[string]string `json:"banners,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Metadata{}
	for key, dst := range map[string]*string{
		"name":           &m.Name,
		"slug":           &m.Slug,
		"author":         &m.Author,
		"author_profile": &m.AuthorProfile,
		"version":        &m.Version,
		"tested":         &m.Tested,
		"requires":       &m.Requires,
		"requires_php":   &m.RequiresPHP,
		"download_url":   &m.DownloadURL,
		"last_updated":   &m.LastUpdated,
	} {
		*dst = scalar(raw[key])
	}
	m.Sections = dict(raw["sections"])
	m.Banners = dict(raw["banners"])

	return nil
}

// scalar renders a JSON string, number or boolean as text.
func scalar(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return ""
	}

	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return ""
		}
		return s
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return ""
		}
		return strconv.FormatBool(b)
	case '{', '[', 'n':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return ""
		}
		return n.String()
	}
}

// dict reads an object as a string map. An array is keyed by index, so an
// empty array yields an empty map. Anything else yields nil.
func dict(v json.RawMessage) map[string]string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return nil
	}

	switch v[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err != nil {
			return nil
		}
		out := make(map[string]string, len(obj))
		for k, item := range obj {
			out[k] = scalar(item)
		}
		return out
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(v, &list); err != nil {
			return nil
		}
		out := make(map[string]string, len(list))
		for i, item := range list {
			out[strconv.Itoa(i)] = scalar(item)
		}
		return out
	default:
		return nil
	}
}

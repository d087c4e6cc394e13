// Package v2 renders feed.Feed as an OPDS 2.0 JSON document: the
// metadata/links/navigation/publications shape spec.md §4.F specifies,
// served with Content-Type "application/opds+json; charset=utf-8".
// Grounded on the same neutral feed.Feed the Atom serializer in
// pkg/opds/v1 consumes (spec.md §9 "OPDS 1.2 vs 2.0 as a single
// navigation model with two serialisers").
package v2

import (
	"encoding/json"
	"time"

	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

// ContentType is the fixed OPDS 2.0 response Content-Type.
const ContentType = feed.MimeTypeOPDS2

type jsonLink struct {
	Rel       string `json:"rel,omitempty"`
	Href      string `json:"href"`
	Type      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Templated bool   `json:"templated,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

type jsonMetadata struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle,omitempty"`
	Modified      string `json:"modified,omitempty"`
	NumberOfItems int    `json:"numberOfItems,omitempty"`
}

type jsonNavEntry struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
}

type jsonPubMetadata struct {
	Identifier  string   `json:"identifier,omitempty"`
	Title       string   `json:"title"`
	Modified    string   `json:"modified,omitempty"`
	Published   string   `json:"published,omitempty"`
	Language    string   `json:"language,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      []string `json:"author,omitempty"`
	Subject     []string `json:"subject,omitempty"`
}

type jsonImage struct {
	Href   string `json:"href"`
	Type   string `json:"type,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type jsonPublication struct {
	Metadata jsonPubMetadata `json:"metadata"`
	Links    []jsonLink      `json:"links"`
	Images   []jsonImage     `json:"images,omitempty"`
}

type jsonDocument struct {
	Metadata     jsonMetadata      `json:"metadata"`
	Links        []jsonLink        `json:"links"`
	Navigation   []jsonNavEntry    `json:"navigation,omitempty"`
	Publications []jsonPublication `json:"publications,omitempty"`
}

// Marshal renders f as an OPDS 2.0 JSON document. Navigation-kind
// feeds render their entries as the "navigation" array; acquisition
// feeds render theirs as "publications".
func Marshal(f *feed.Feed) ([]byte, error) {
	doc := jsonDocument{
		Metadata: jsonMetadata{
			Title:         f.Title,
			Subtitle:      f.Subtitle,
			Modified:      formatTime(f.Updated),
			NumberOfItems: f.NumberOfItems,
		},
	}
	for _, l := range f.Links {
		doc.Links = append(doc.Links, toJSONLink(l))
	}

	if f.Kind == feed.KindNavigation {
		for _, e := range f.Entries {
			href := ""
			for _, l := range e.Links {
				if l.Rel == feed.RelSubsection || l.Rel == feed.RelAlternate {
					href = l.Href
					break
				}
			}
			doc.Navigation = append(doc.Navigation, jsonNavEntry{Title: e.Title, Href: href, Type: feed.MimeTypeNavigation})
		}
	} else {
		for _, e := range f.Entries {
			doc.Publications = append(doc.Publications, toPublication(e))
		}
	}

	return json.MarshalIndent(doc, "", "  ")
}

func toJSONLink(l feed.Link) jsonLink {
	return jsonLink{Rel: l.Rel, Href: l.Href, Type: l.Type, Title: l.Title, Templated: l.Templated, Width: l.Width, Height: l.Height}
}

func toPublication(e feed.Entry) jsonPublication {
	pub := jsonPublication{
		Metadata: jsonPubMetadata{
			Identifier:  e.Identifier,
			Title:       e.Title,
			Modified:    formatTime(e.Updated),
			Published:   formatTime(e.Published),
			Language:    e.Language,
			Description: e.Content,
		},
	}
	for _, a := range e.Authors {
		pub.Metadata.Author = append(pub.Metadata.Author, a.Name)
	}
	for _, c := range e.Categories {
		pub.Metadata.Subject = append(pub.Metadata.Subject, c.Label)
	}
	for _, l := range e.Links {
		if l.Rel == feed.RelImage || l.Rel == feed.RelThumbnail {
			pub.Images = append(pub.Images, jsonImage{Href: l.Href, Type: l.Type, Width: l.Width, Height: l.Height})
			continue
		}
		pub.Links = append(pub.Links, toJSONLink(l))
	}
	return pub
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

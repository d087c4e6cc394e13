package v1

import (
	"encoding/xml"
	"io"

	"github.com/dshein-alt/ropds-go/pkg/opds/feed"
)

type openSearchDescription struct {
	XMLName     xml.Name `xml:"OpenSearchDescription"`
	Xmlns       string   `xml:"xmlns,attr"`
	ShortName   string   `xml:"ShortName"`
	Description string   `xml:"Description"`
	URL         struct {
		Type     string `xml:"type,attr"`
		Template string `xml:"template,attr"`
	} `xml:"Url"`
}

// RenderOpenSearch writes the OpenSearch description document the root
// feed's search link points at.
func RenderOpenSearch(w io.Writer, d feed.OpenSearchDescription) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	doc := openSearchDescription{
		Xmlns:       "http://a9.com/-/spec/opensearch/1.1/",
		ShortName:   d.ShortName,
		Description: d.Description,
	}
	doc.URL.Type = feed.MimeTypeAcquisition
	doc.URL.Template = d.URLTemplate
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}

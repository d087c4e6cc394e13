package fb2

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFB2 = `<?xml version="1.0" encoding="utf-8"?>
<FictionBook xmlns="http://www.gribuser.ru/xml/fictionbook/2.0">
  <description>
    <title-info>
      <genre>sf</genre>
      <author><first-name>Jules</first-name><last-name>Verne</last-name></author>
      <book-title>Twenty Thousand Leagues</book-title>
      <lang>en</lang>
      <sequence name="Voyages" number="6"/>
      <annotation><p>A classic.</p></annotation>
      <coverpage><image l:href="#cover.jpg"/></coverpage>
    </title-info>
    <document-info>
      <date value="1870-01-01"/>
    </document-info>
  </description>
  <binary id="cover.jpg" content-type="image/jpeg">/9j/4AAQSkZJRg==</binary>
</FictionBook>`

func TestParse(t *testing.T) {
	meta, err := Parse(strings.NewReader(sampleFB2), strings.NewReader(sampleFB2))
	require.NoError(t, err)
	assert.Equal(t, "Twenty Thousand Leagues", meta.Title)
	assert.Equal(t, []string{"Jules Verne"}, meta.Authors)
	assert.Equal(t, []string{"sf"}, meta.Genres)
	assert.Equal(t, "en", meta.Lang)
	assert.Equal(t, "Voyages", meta.SeriesTitle)
	assert.Equal(t, 6, meta.SeriesIndex)
	assert.Equal(t, "1870-01-01", meta.Docdate)
	assert.NotEmpty(t, meta.CoverData)
}

func TestParse_NoTitleErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(`<FictionBook><description><title-info></title-info></description></FictionBook>`), nil)
	require.Error(t, err)
}

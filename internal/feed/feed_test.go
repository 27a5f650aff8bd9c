package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>BIS Research</title>
  <item>
    <title>Central bank digital currencies and payment systems</title>
    <link>https://www.bis.org/publ/work1234.htm</link>
    <description><![CDATA[Working paper on CBDC settlement risk.]]></description>
    <pubDate>Mon, 13 Jul 2026 09:30:00 +0000</pubDate>
  </item>
  <item>
    <title>No link item</title>
    <description>Dropped because there is nothing to fetch.</description>
  </item>
</channel>
</rss>`

func TestGofeedParser(t *testing.T) {
	items, err := NewGofeedParser().Parse(context.Background(), []byte(sampleRSS))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Central bank digital currencies and payment systems", items[0].Title)
	assert.Equal(t, "https://www.bis.org/publ/work1234.htm", items[0].Link)
	assert.Equal(t, "Working paper on CBDC settlement risk.", items[0].Description)
	require.NotNil(t, items[0].Published)
	assert.Equal(t, 2026, items[0].Published.Year())
}

func TestFallbackParserRSS(t *testing.T) {
	items, err := FallbackParser{}.Parse(context.Background(), []byte(sampleRSS))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Central bank digital currencies and payment systems", items[0].Title)
	assert.Equal(t, "https://www.bis.org/publ/work1234.htm", items[0].Link)
	assert.Equal(t, "Working paper on CBDC settlement risk.", items[0].Description)
	require.NotNil(t, items[0].Published)
}

func TestFallbackParserAtom(t *testing.T) {
	atom := `<feed xmlns="http://www.w3.org/2005/Atom">
	<entry>
	  <title>AML screening with graph models</title>
	  <link href="https://example.org/posts/aml-graphs"/>
	  <summary>Entity resolution for transaction monitoring.</summary>
	  <updated>2026-05-02T10:00:00Z</updated>
	</entry>
	</feed>`

	items, err := FallbackParser{}.Parse(context.Background(), []byte(atom))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.org/posts/aml-graphs", items[0].Link)
	require.NotNil(t, items[0].Published)
	assert.Equal(t, time.May, items[0].Published.Month())
}

func TestPublishedDateFallsBackToArxivID(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

	item := Item{Link: "https://arxiv.org/abs/2407.12345"}
	got := PublishedDate(item, now)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), got)

	// Implausible year in the ID falls through to now.
	item = Item{Link: "https://arxiv.org/abs/1907.12345"}
	assert.Equal(t, now(), PublishedDate(item, now))

	// An explicit feed date wins over the heuristic.
	explicit := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	item = Item{Link: "https://arxiv.org/abs/2407.12345", Published: &explicit}
	assert.Equal(t, explicit, PublishedDate(item, now))
}

func TestIsArxiv(t *testing.T) {
	assert.True(t, IsArxiv("https://arxiv.org/abs/2407.12345"))
	assert.True(t, IsArxiv("http://ARXIV.org/pdf/2501.00001"))
	assert.False(t, IsArxiv("https://www.bis.org/publ/work1234.htm"))
}

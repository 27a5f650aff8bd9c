package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>How Banks Deploy Agentic AI</title>
  <meta property="og:description" content="A survey of agent deployments in retail banking."/>
  <meta property="og:image" content="/images/hero.jpg"/>
  <meta property="article:published_time" content="2026-06-15T09:00:00Z"/>
  <meta name="author" content="Jane Smith"/>
</head>
<body>
  <nav>Home | About</nav>
  <article>
    <h1>How Banks Deploy Agentic AI</h1>
    <p>Retail banks are rolling out autonomous agents for dispute handling,
    onboarding, and transaction monitoring. Early adopters report material
    reductions in handling time across their servicing operations, though
    model risk teams remain cautious about fully unattended flows.</p>
  </article>
  <footer>Copyright</footer>
  <script>analytics()</script>
</body>
</html>`

func TestExtractPage(t *testing.T) {
	p, err := ExtractPage([]byte(sampleHTML), "https://example.com/insights/agentic-ai")
	require.NoError(t, err)

	assert.Equal(t, "How Banks Deploy Agentic AI", p.Title)
	assert.Equal(t, "A survey of agent deployments in retail banking.", p.Description)
	assert.Equal(t, "Jane Smith", p.Author)
	require.NotNil(t, p.Published)
	assert.Equal(t, "2026-06-15", p.Published.Format("2006-01-02"))
	assert.Equal(t, "https://example.com/images/hero.jpg", p.ImageURL, "relative og:image resolves against the page URL")
	assert.Contains(t, p.Text, "dispute handling")
	assert.NotContains(t, p.Text, "analytics", "script content is stripped")
	assert.NotContains(t, p.Text, "Home | About", "nav content is stripped")
}

func TestExtractPageFallsBackToOGTitle(t *testing.T) {
	html := `<html><head><meta property="og:title" content="Preview Title"/></head><body><p>x</p></body></html>`
	p, err := ExtractPage([]byte(html), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Preview Title", p.Title)
	assert.Nil(t, p.Published)
}

func TestTitleFromURL(t *testing.T) {
	assert.Equal(t, "Basel Iii Endgame Update", TitleFromURL("https://example.com/research/basel-iii-endgame-update"))
	assert.Equal(t, "Quarterly Outlook", TitleFromURL("https://example.com/pdfs/quarterly_outlook.pdf"))
	assert.Equal(t, "example.com", TitleFromURL("https://example.com/"))
}

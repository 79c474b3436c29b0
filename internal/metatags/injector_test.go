package metatags

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
	"github.com/localcontactforms/contactform/internal/common/htmlprocessor"
	"github.com/localcontactforms/contactform/pkg/types"
)

const shellPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <TITLE>Contact Us</TITLE>
  <meta name="description" content="Default description">
  <meta name="author" content="Local Contact Forms">
  <meta name="apple-mobile-web-app-title" content="Contact">
</head>
<body><app-root></app-root></body>
</html>`

func baseConfig() types.TenantConfig {
	return types.TenantConfig{
		types.KeyBusinessName:    "Acme Plumbing",
		types.KeyMetaDescription: "24/7 emergency plumbing",
		types.KeyMetaKeywords:    "plumber, drains",
	}
}

func parse(t *testing.T, html string) htmlprocessor.Document {
	t.Helper()
	doc, err := htmlprocessor.Parse([]byte(html))
	require.NoError(t, err)
	return doc
}

func TestRewrite_ReplacesAndInserts(t *testing.T) {
	inj := NewInjector(Options{})

	res, err := inj.Rewrite(shellPage, Input{Config: baseConfig(), PageURL: "https://forms.test/?id=acme&x=1"})
	require.NoError(t, err)

	doc := parse(t, res.HTML)
	assert.Equal(t, "Acme Plumbing", doc.Title())
	assert.Equal(t, 1, doc.Count("title"))
	assert.Equal(t, []string{"24/7 emergency plumbing"}, doc.Meta("description"))
	assert.Equal(t, []string{"plumber, drains"}, doc.Meta("keywords"))
	assert.Equal(t, []string{"Acme Plumbing"}, doc.Meta("og:title"))
	assert.Equal(t, []string{"Acme Plumbing"}, doc.Meta("og:site_name"))
	assert.Equal(t, []string{"website"}, doc.Meta("og:type"))
	assert.Equal(t, []string{"https://forms.test/?id=acme&x=1"}, doc.Meta("og:url"))
	assert.Equal(t, []string{"summary"}, doc.Meta("twitter:card"))
	assert.Equal(t, []string{"24/7 emergency plumbing"}, doc.Meta("twitter:description"))
	assert.Equal(t, []string{"Acme Plumbing"}, doc.Meta("apple-mobile-web-app-title"))
	assert.Empty(t, doc.Meta("og:image"))

	assert.Equal(t, []string{"Local Contact Forms"}, doc.Meta("author"), "author without value keeps the original")
	assert.ElementsMatch(t, []string{"title", "description", "apple-mobile-web-app-title"}, res.Replaced)
	assert.Contains(t, res.Inserted, "og:title")
	assert.NotContains(t, res.Inserted, "author")
	assert.Contains(t, res.HTML, `content="https://forms.test/?id=acme&amp;x=1"`)

	headEnd := strings.Index(res.HTML, "</head>")
	assert.Less(t, strings.Index(res.HTML, `property="og:title"`), headEnd)
}

func TestRewrite_ExactlyOneEscapedTitle(t *testing.T) {
	names := []string{
		`Bob's "Best" <Bakery> & Co`,
		"Caf&eacute; Noir",
		"<script>alert(1)</script>",
		"Plain",
	}
	inj := NewInjector(Options{})
	titleTag := regexp.MustCompile(`(?i)<title>`)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			cfg[types.KeyBusinessName] = name

			res, err := inj.Rewrite(shellPage, Input{Config: cfg})
			require.NoError(t, err)

			assert.Len(t, titleTag.FindAllString(res.HTML, -1), 1)
			assert.Contains(t, res.HTML, "<title>"+EscapeHTML(name)+"</title>")
			assert.NotContains(t, res.HTML, "<script>")
		})
	}
}

func TestRewrite_TitleRoundTrips(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "Smith&Sons; Plumbing", want: "Smith&Sons; Plumbing"},
		{name: "Print&copyshop; Studio", want: "Print&copyshop; Studio"},
		{name: "R&D <Labs>", want: "R&D <Labs>"},
		{name: "Caf&eacute; Noir", want: "Café Noir"},
	}
	inj := NewInjector(Options{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg[types.KeyBusinessName] = tt.name

			res, err := inj.Rewrite(shellPage, Input{Config: cfg})
			require.NoError(t, err)

			doc := parse(t, res.HTML)
			assert.Equal(t, tt.want, doc.Title())
			assert.Equal(t, []string{tt.want}, doc.Meta("og:title"))
		})
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	inj := NewInjector(Options{})
	in := Input{Config: baseConfig(), PageURL: "https://forms.test/contact/acme"}

	first, err := inj.Rewrite(shellPage, in)
	require.NoError(t, err)
	second, err := inj.Rewrite(first.HTML, in)
	require.NoError(t, err)

	assert.Equal(t, first.HTML, second.HTML)
	assert.Empty(t, second.Inserted)
}

func TestRewrite_ImageAndCard(t *testing.T) {
	tests := []struct {
		name      string
		extra     map[string]string
		wantImage string
		wantCard  string
	}{
		{name: "no image", wantCard: "summary"},
		{name: "logo fallback", extra: map[string]string{types.KeyLogoURL: "https://cdn.test/logo.png"}, wantImage: "https://cdn.test/logo.png", wantCard: "summary_large_image"},
		{
			name:      "og image wins",
			extra:     map[string]string{types.KeyLogoURL: "https://cdn.test/logo.png", types.KeyOGImageURL: "https://cdn.test/og.png"},
			wantImage: "https://cdn.test/og.png",
			wantCard:  "summary_large_image",
		},
	}

	inj := NewInjector(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			for k, v := range tt.extra {
				cfg[k] = v
			}
			res, err := inj.Rewrite(shellPage, Input{Config: cfg})
			require.NoError(t, err)

			doc := parse(t, res.HTML)
			assert.Equal(t, []string{tt.wantCard}, doc.Meta("twitter:card"))
			if tt.wantImage == "" {
				assert.Empty(t, doc.Meta("og:image"))
				return
			}
			assert.Equal(t, []string{tt.wantImage}, doc.Meta("og:image"))
			assert.Equal(t, []string{tt.wantImage}, doc.Meta("twitter:image"))
		})
	}
}

func TestRewrite_TwitterDescriptionSource(t *testing.T) {
	cfg := baseConfig()
	cfg[types.KeyIntroText] = "<p>Family owned <b>since 1982</b>.</p>"

	meta := NewInjector(Options{TwitterDescriptionSource: configtypes.TwitterDescriptionMeta})
	res, err := meta.Rewrite(shellPage, Input{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, []string{"24/7 emergency plumbing"}, parse(t, res.HTML).Meta("twitter:description"))

	intro := NewInjector(Options{TwitterDescriptionSource: configtypes.TwitterDescriptionIntro})
	res, err = intro.Rewrite(shellPage, Input{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, []string{"Family owned since 1982."}, parse(t, res.HTML).Meta("twitter:description"))

	delete(cfg, types.KeyIntroText)
	res, err = intro.Rewrite(shellPage, Input{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, []string{"24/7 emergency plumbing"}, parse(t, res.HTML).Meta("twitter:description"))
}

func TestRewrite_MissingRequired(t *testing.T) {
	inj := NewInjector(Options{})

	for _, key := range []string{types.KeyBusinessName, types.KeyMetaDescription} {
		cfg := baseConfig()
		cfg[key] = "   "
		res, err := inj.Rewrite(shellPage, Input{Config: cfg})
		require.ErrorIs(t, err, ErrMissingRequired)
		assert.Contains(t, err.Error(), key)
		assert.Nil(t, res)
	}
}

func TestRewrite_NoHead(t *testing.T) {
	inj := NewInjector(Options{})
	page := "<title>x</title><p>fragment</p>"

	res, err := inj.Rewrite(page, Input{Config: baseConfig()})
	require.NoError(t, err)
	assert.Equal(t, "<title>Acme Plumbing</title><p>fragment</p>", res.HTML)
	assert.Empty(t, res.Inserted)
}

func TestMetaMatcher(t *testing.T) {
	m := MetaMatcher("og:title")
	tests := []struct {
		html  string
		match bool
	}{
		{`<meta property="og:title" content="x">`, true},
		{`<META content='x' Property='OG:TITLE' />`, true},
		{`<meta name="og:title" content="x">`, true},
		{`<meta property="og:title:alt" content="x">`, false},
		{`<meta property="og:description" content="x">`, false},
		{`<meta data-name="og:title" content="x">`, false},
		{`<meta data-property="og:title" property="og:description">`, false},
		{"<meta\n\tproperty=\"og:title\" content=\"x\">", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.match, m.Pattern.MatchString(tt.html), tt.html)
	}
}

type recordingRewriter struct {
	names []string
}

func (r *recordingRewriter) RewriteTag(html string, m TagMatcher, replacement string) (string, bool) {
	r.names = append(r.names, m.Name)
	return RegexRewriter{}.RewriteTag(html, m, replacement)
}

func TestRewrite_CustomRewriter(t *testing.T) {
	rw := &recordingRewriter{}
	inj := NewInjector(Options{Rewriter: rw})

	_, err := inj.Rewrite(shellPage, Input{Config: baseConfig()})
	require.NoError(t, err)

	assert.Equal(t, "title", rw.names[0])
	assert.Equal(t, "/head", rw.names[len(rw.names)-1])
}

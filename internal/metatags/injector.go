package metatags

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
	"github.com/localcontactforms/contactform/pkg/types"
)

// ErrMissingRequired is returned when the tenant config lacks
// business_name or meta_description.
var ErrMissingRequired = errors.New("tenant config missing required fields")

const (
	cardSummary      = "summary"
	cardSummaryLarge = "summary_large_image"
	ogTypeWebsite    = "website"
)

type tagKind int

const (
	kindTitle tagKind = iota
	kindMetaName
	kindMetaProperty
)

// Input is everything a tag value can be derived from.
type Input struct {
	Config  types.TenantConfig
	PageURL string
}

type tag struct {
	matcher TagMatcher
	kind    tagKind
	key     string
	value   func(Input) string
	// insert places the tag before </head> when the page lacks it
	insert bool
}

func (t tag) render(value string) string {
	v := EscapeHTML(value)
	switch t.kind {
	case kindTitle:
		return "<title>" + v + "</title>"
	case kindMetaProperty:
		return `<meta property="` + t.key + `" content="` + v + `">`
	default:
		return `<meta name="` + t.key + `" content="` + v + `">`
	}
}

// Result describes one rewrite.
type Result struct {
	HTML     string
	Replaced []string
	Inserted []string
}

// Changed reports whether any tag was written.
func (r *Result) Changed() bool {
	return len(r.Replaced) > 0 || len(r.Inserted) > 0
}

// Options tune an Injector.
type Options struct {
	// TwitterDescriptionSource is the config key feeding twitter:description.
	TwitterDescriptionSource string
	// Rewriter defaults to RegexRewriter.
	Rewriter TagRewriter
}

// Injector rewrites the fixed set of SEO and social tags of a page from a
// tenant config.
type Injector struct {
	rewriter TagRewriter
	tags     []tag
}

func NewInjector(opts Options) *Injector {
	rw := opts.Rewriter
	if rw == nil {
		rw = RegexRewriter{}
	}
	return &Injector{rewriter: rw, tags: buildTags(opts.TwitterDescriptionSource)}
}

var (
	plainTextPolicy     *bluemonday.Policy
	plainTextPolicyOnce sync.Once
)

// plainText strips markup from rich tenant text such as intro_text.
func plainText(s string) string {
	plainTextPolicyOnce.Do(func() {
		plainTextPolicy = bluemonday.StrictPolicy()
	})
	return strings.Join(strings.Fields(plainTextPolicy.Sanitize(s)), " ")
}

func configValue(key string) func(Input) string {
	return func(in Input) string { return in.Config.Get(key) }
}

func imageURL(in Input) string {
	if v := in.Config.Get(types.KeyOGImageURL); v != "" {
		return v
	}
	return in.Config.Get(types.KeyLogoURL)
}

func buildTags(twitterSource string) []tag {
	businessName := configValue(types.KeyBusinessName)
	description := configValue(types.KeyMetaDescription)

	twitterDescription := description
	if twitterSource == configtypes.TwitterDescriptionIntro {
		twitterDescription = func(in Input) string {
			if v := plainText(in.Config.Get(types.KeyIntroText)); v != "" {
				return v
			}
			return in.Config.Get(types.KeyMetaDescription)
		}
	}

	card := func(in Input) string {
		if imageURL(in) != "" {
			return cardSummaryLarge
		}
		return cardSummary
	}

	name := func(key string, value func(Input) string, insert bool) tag {
		return tag{matcher: MetaMatcher(key), kind: kindMetaName, key: key, value: value, insert: insert}
	}
	property := func(key string, value func(Input) string) tag {
		return tag{matcher: MetaMatcher(key), kind: kindMetaProperty, key: key, value: value, insert: true}
	}

	return []tag{
		{matcher: TitleMatcher(), kind: kindTitle, key: "title", value: businessName},
		name("description", description, true),
		name("keywords", configValue(types.KeyMetaKeywords), true),
		name("author", configValue(types.KeyMetaAuthor), false),
		property("og:title", businessName),
		property("og:description", description),
		property("og:image", imageURL),
		property("og:site_name", businessName),
		property("og:type", func(Input) string { return ogTypeWebsite }),
		property("og:url", func(in Input) string { return in.PageURL }),
		name("twitter:card", card, true),
		name("twitter:title", businessName, true),
		name("twitter:description", twitterDescription, true),
		name("twitter:image", imageURL, true),
		name("apple-mobile-web-app-title", businessName, false),
	}
}

// Validate checks the fields a rewrite cannot do without.
func Validate(cfg types.TenantConfig) error {
	var missing []string
	for _, key := range []string{types.KeyBusinessName, types.KeyMetaDescription} {
		if cfg.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}
	return nil
}

// Rewrite replaces each known tag whose value is non-empty and inserts
// missing Open Graph, Twitter, description and keywords tags before </head>.
func (inj *Injector) Rewrite(html string, in Input) (*Result, error) {
	if err := Validate(in.Config); err != nil {
		return nil, err
	}

	res := &Result{HTML: html}
	var pending []string

	for _, t := range inj.tags {
		value := t.value(in)
		if value == "" {
			continue
		}
		element := t.render(value)

		out, ok := inj.rewriter.RewriteTag(res.HTML, t.matcher, element)
		if ok {
			res.HTML = out
			res.Replaced = append(res.Replaced, t.key)
			continue
		}
		if t.insert {
			pending = append(pending, element)
			res.Inserted = append(res.Inserted, t.key)
		}
	}

	if len(pending) == 0 {
		return res, nil
	}

	block := "  " + strings.Join(pending, "\n  ") + "\n</head>"
	out, ok := inj.rewriter.RewriteTag(res.HTML, HeadCloseMatcher(), block)
	if !ok {
		// no </head>: nothing can be inserted
		res.Inserted = nil
		return res, nil
	}
	res.HTML = out
	return res, nil
}

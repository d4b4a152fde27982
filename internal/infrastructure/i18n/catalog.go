package i18n

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-approval/internal/core/domain"
)

//go:embed messages.yaml
var defaultMessages []byte

type message struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type compiled struct {
	title *template.Template
	body  *template.Template
}

// Catalog renders notification message keys per locale. Lookups fall back from the
// full locale to its language and then to the fallback locale.
type Catalog struct {
	fallback string
	locales  map[string]map[string]compiled
}

func NewDefaultCatalog(fallback string) (*Catalog, error) {
	return Parse(defaultMessages, fallback)
}

func Parse(data []byte, fallback string) (*Catalog, error) {
	var raw map[string]map[string]message
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}

	fallback = normalizeLocale(fallback)
	if fallback == "" {
		fallback = "en"
	}
	if _, ok := raw[fallback]; !ok {
		return nil, fmt.Errorf("message catalog has no fallback locale %q", fallback)
	}

	c := &Catalog{fallback: fallback, locales: make(map[string]map[string]compiled, len(raw))}
	for locale, messages := range raw {
		set := make(map[string]compiled, len(messages))
		for key, m := range messages {
			title, err := template.New(key + ".title").Option("missingkey=zero").Parse(m.Title)
			if err != nil {
				return nil, fmt.Errorf("parse %s %s title: %w", locale, key, err)
			}
			body, err := template.New(key + ".body").Option("missingkey=zero").Parse(m.Body)
			if err != nil {
				return nil, fmt.Errorf("parse %s %s body: %w", locale, key, err)
			}
			set[key] = compiled{title: title, body: body}
		}
		c.locales[normalizeLocale(locale)] = set
	}
	return c, nil
}

func (c *Catalog) Render(locale, key string, params map[string]string) (string, string, error) {
	m, ok := c.lookup(locale, key)
	if !ok {
		return "", "", domain.WrapError(domain.ErrNotFound, "render message", fmt.Errorf("unknown message key %q", key))
	}
	if params == nil {
		params = map[string]string{}
	}

	var title, body strings.Builder
	if err := m.title.Execute(&title, params); err != nil {
		return "", "", fmt.Errorf("render %s title: %w", key, err)
	}
	if err := m.body.Execute(&body, params); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", key, err)
	}
	return title.String(), body.String(), nil
}

// Locales lists the loaded locales in sorted order.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.locales))
	for l := range c.locales {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) lookup(locale, key string) (compiled, bool) {
	locale = normalizeLocale(locale)
	candidates := []string{locale}
	if lang, _, found := strings.Cut(locale, "-"); found {
		candidates = append(candidates, lang)
	}
	candidates = append(candidates, c.fallback)

	for _, l := range candidates {
		if m, ok := c.locales[l][key]; ok {
			return m, true
		}
	}
	return compiled{}, false
}

func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}

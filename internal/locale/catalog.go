// Package locale holds the embedded message catalogs for the explanation
// renderer. Each supported locale ships a YAML file flattened to dot-keys;
// values are text/template bodies rendered with missingkey=error.
package locale

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml messages.pt.yaml
var catalogFiles embed.FS

const fallbackLocale = "en"

// Supported lists the locales with an embedded catalog, fallback first.
var Supported = []string{"en", "pt"}

// requiredKeys is the contract every catalog must satisfy; load fails if a
// locale is missing any of them.
var requiredKeys = []string{
	"side.white",
	"side.black",
	"phase.opening",
	"phase.middlegame",
	"phase.endgame",
	"misc.and",
	"misc.eval_label",
	"explain.assessment_title",
	"explain.turn_to_move",
	"explain.material_advantage",
	"explain.material_equal",
	"explain.in_check",
	"explain.checkmate",
	"explain.stalemate",
	"explain.analysis_title",
	"explain.rank_best",
	"explain.rank_second",
	"explain.rank_third",
	"explain.forced_mate",
	"explain.getting_mated",
	"explain.decisive_advantage",
	"explain.clear_advantage",
	"explain.slight_edge",
	"explain.losing",
	"explain.worse",
	"explain.opponent_edge",
	"explain.equal",
	"explain.why_sequence",
	"explain.reply",
	"explain.continuation",
	"explain.further_moves",
	"explain.strategic_title",
	"explain.advice_opening",
	"explain.advice_middlegame",
	"explain.advice_endgame",
	"explain.can_castle",
	"explain.api_tip",
	"explain.llm_unavailable",
}

type Catalog struct {
	locales map[string]map[string]string
}

// New loads and verifies all embedded catalogs.
func New() (*Catalog, error) {
	c := &Catalog{locales: make(map[string]map[string]string)}
	for _, tag := range Supported {
		raw, err := fs.ReadFile(catalogFiles, "messages."+tag+".yaml")
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", tag, err)
		}
		flat, err := parseYAMLToFlat(raw)
		if err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", tag, err)
		}
		for _, key := range requiredKeys {
			if strings.TrimSpace(flat[key]) == "" {
				return nil, fmt.Errorf("catalog %s missing required key %q", tag, key)
			}
		}
		c.locales[tag] = flat
	}
	return c, nil
}

// Normalize maps a requested language tag onto a supported locale,
// defaulting to English.
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, s := range Supported {
		if tag == s || strings.HasPrefix(tag, s+"-") {
			return s
		}
	}
	return fallbackLocale
}

// Render executes the template stored under key for the locale, falling back
// to English when the locale lacks the key.
func (c *Catalog) Render(locale, key string, data any) (string, error) {
	tpl, ok := c.locales[locale][key]
	if !ok || strings.TrimSpace(tpl) == "" {
		tpl, ok = c.locales[fallbackLocale][key]
		if !ok || strings.TrimSpace(tpl) == "" {
			return "", fmt.Errorf("message not found: %s", key)
		}
	}
	t, err := template.New(key).Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// MustRender is Render for keys whose presence the load contract already
// guaranteed; template execution errors still surface as the key itself so a
// bad data map cannot take down a whole report.
func (c *Catalog) MustRender(locale, key string, data any) string {
	out, err := c.Render(locale, key, data)
	if err != nil {
		return key
	}
	return out
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	flat := make(map[string]string)
	if err := flattenStrings(m, "", flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenStrings(src any, prefix string, out map[string]string) error {
	switch v := src.(type) {
	case map[string]any:
		for k, vv := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flattenStrings(vv, key, out); err != nil {
				return err
			}
		}
		return nil
	case string:
		if prefix == "" {
			return errors.New("string value without key prefix")
		}
		out[prefix] = v
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
}

// Package prompts holds the default text prompts per product category and
// photo style.
package prompts

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCategory = "clothing"
	DefaultStyle    = "studio"
)

// Table maps category -> style -> prompt template.
type Table map[string]map[string]string

var builtin = Table{
	"clothing": {
		"studio":    "professional studio product photo of a clothing item on a clean white background, soft even lighting, sharp fabric detail, commercial catalog style",
		"lifestyle": "lifestyle photo of a clothing item worn in a natural everyday setting, warm daylight, shallow depth of field, candid mood",
		"elegant":   "elegant fashion editorial of a clothing item, luxurious interior, dramatic soft lighting, refined composition",
	},
	"shoes": {
		"studio":    "professional studio product photo of a pair of shoes on a clean white background, soft shadows, crisp material texture, catalog style",
		"lifestyle": "lifestyle photo of shoes on a city street, natural light, motion and depth, authentic urban mood",
		"elegant":   "elegant product photo of shoes on a marble pedestal, gold accents, dramatic rim lighting, luxury advertising",
	},
	"accessories": {
		"studio":    "professional studio product photo of a fashion accessory on a clean white background, macro detail, even lighting, catalog style",
		"lifestyle": "lifestyle photo of a fashion accessory in everyday use, natural light, cozy setting, shallow depth of field",
		"elegant":   "elegant close-up of a fashion accessory on velvet, jewelry-store lighting, reflections and sparkle, luxury advertising",
	},
}

// Library resolves prompts from the built-in table plus optional overrides.
type Library struct {
	table    Table
	negative string
}

// File is the YAML layout accepted by LoadFile.
type File struct {
	Negative  string `yaml:"negative"`
	Templates Table  `yaml:"templates"`
}

// Default returns the built-in library.
func Default() *Library {
	return &Library{table: clone(builtin)}
}

// LoadFile reads YAML overrides and merges them over the built-in table.
// An empty path returns Default().
func LoadFile(path string) (*Library, error) {
	lib := Default()
	if strings.TrimSpace(path) == "" {
		return lib, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompts: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("prompts: parse %s: %w", path, err)
	}
	for category, styles := range f.Templates {
		category = key(category)
		if lib.table[category] == nil {
			lib.table[category] = map[string]string{}
		}
		for style, tmpl := range styles {
			if tmpl = strings.TrimSpace(tmpl); tmpl != "" {
				lib.table[category][key(style)] = tmpl
			}
		}
	}
	lib.negative = strings.TrimSpace(f.Negative)
	return lib, nil
}

// Prompt picks the template for category and style. An unknown style falls
// back to studio; an unknown category falls back to clothing.
func (l *Library) Prompt(category, style string) string {
	styles, ok := l.table[key(category)]
	if !ok {
		styles = l.table[DefaultCategory]
	}
	if p, ok := styles[key(style)]; ok {
		return p
	}
	if p, ok := styles[DefaultStyle]; ok {
		return p
	}
	return l.table[DefaultCategory][DefaultStyle]
}

// Negative returns the configured negative prompt, empty when unset.
func (l *Library) Negative() string { return l.negative }

// Label renders a display label such as "Elegant Shoes".
func (l *Library) Label(category, style string) string {
	c := cases.Title(language.Und)
	if key(style) == "" {
		style = DefaultStyle
	}
	if key(category) == "" {
		category = DefaultCategory
	}
	return c.String(key(style) + " " + key(category))
}

// Categories lists known categories in sorted order.
func (l *Library) Categories() []string {
	out := make([]string, 0, len(l.table))
	for k := range l.table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Styles lists the styles defined for category.
func (l *Library) Styles(category string) []string {
	styles := l.table[key(category)]
	out := make([]string, 0, len(styles))
	for k := range styles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func clone(t Table) Table {
	out := make(Table, len(t))
	for c, styles := range t {
		out[c] = make(map[string]string, len(styles))
		for s, p := range styles {
			out[c][s] = p
		}
	}
	return out
}

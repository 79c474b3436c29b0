package formpage

import (
	"html/template"
	"strings"
	"unicode"
)

// DefaultTheme is applied when a tenant names no theme or an unknown one.
const DefaultTheme = "Light"

// colorKeys fixes the order CSS variables are emitted in.
var colorKeys = []string{
	"headerBackground",
	"headerText",
	"infoPanelBackground",
	"infoPanelText",
	"infoPanelHeading",
	"infoPanelIcon",
	"formPanelBackground",
	"formPanelText",
	"formFieldBorder",
	"formFieldBackground",
	"formFieldText",
	"buttonEnabledBackground",
	"buttonEnabledText",
	"buttonDisabledBackground",
	"buttonDisabledText",
	"buttonHoverBackground",
	"buttonHoverText",
	"spinnerColor",
	"pageBackground",
	"errorColor",
	"successColor",
	"borderColor",
}

// palette lists a theme's values in colorKeys order.
type palette [22]string

var themes = map[string]palette{
	"Fern": {
		"#2C4E38", "#E8E2D4", "#222017", "#DBC66E", "#DBC66E", "#DBC66E",
		"#DBC66E", "#222017", "#222017", "#f1f8f5", "#222017",
		"#2C4E38", "#E8E2D4", "#b19f58ff", "#2C4E38", "#245a39", "#ffffff",
		"#DBC66E", "#15130B", "#cc3333", "#2d8a4a", "#245a39",
	},
	"Lilac": {
		"#573E5C", "#FAD8FD", "#1D2024", "#AAC7FF", "#AAC7FF", "#6B5B95",
		"#F5F1F8", "#4A3F6B", "#D4C5E8", "#FAFAF9", "#4A3F6B",
		"#6B5B95", "#F5F1F8", "#D4C5E8", "#8B7BA8", "#5A4A84", "#F5F1F8",
		"#6B5B95", "#111318", "#cc3333", "#66cc99", "#D4C5E8",
	},
	"Lemoncello": {
		"#DBC66E", "#3A3000", "#222017", "#DBC66E", "#DBC66E", "#b19131ff",
		"#fff8dcff", "#4A4226", "#F4E4AA", "#ffffffff", "#4A4226",
		"#F4C430", "#2C2416", "#F4E4AA", "#8B8B6A", "#DAA520", "#2C2416",
		"#F4C430", "#15130B", "#cc3333", "#66cc99", "#F4E4AA",
	},
	"Sapphire": {
		"#214C57", "#BEEAF7", "#1C211C", "#95D5A8", "#95D5A8", "#669273ff",
		"#e6f9ffff", "#000D12", "#1C211C", "#FFFFF0", "#000D12",
		"#214C57", "#BEEAF7", "rgba(52, 114, 129, 1)", "#95D5A8", "#214C57", "#BEEAF7",
		"#95D5A8", "#0F1511", "#cc3333", "#66cc99", "#95D5A8",
	},
	"Crimson": {
		"#7D1F26", "#FDECEC", "#1E1718", "#E6A3A3", "#E6A3A3", "#A84C55",
		"#FFF7F7", "#4A1F22", "#E4B8B8", "#FFFBFB", "#4A1F22",
		"#7D1F26", "#FDECEC", "#E4B8B8", "#7D1F26", "#6B1A1E", "#FFFFFF",
		"#D46A6A", "#141012", "#cc3333", "#66cc99", "#6B1A1E",
	},
	"Light": {
		"#ffffffff", "#1F2937", "#FFFFFF", "#374151", "#374151", "#2563EB",
		"#FFFFFF", "#111827", "#9CA3AF", "#F1F5F9", "#111827",
		"#2563EB", "#FFFFFF", "#E5E7EB", "#9CA3AF", "#1D4ED8", "#FFFFFF",
		"#2563EB", "#EEF2F7", "#cc3333", "#66cc99", "#CBD5E1",
	},
	"Dark": {
		"#12161C", "#E5E7EB", "#0F141A", "#CBD5E1", "#E2E8F0", "#94A3B8",
		"#181E27", "#E5E7EB", "#9CA3AF", "#E5E7EB", "#111827",
		"#3B4250", "#F9FAFB", "#2A313C", "#9CA3AF", "#4B5563", "#FFFFFF",
		"#9CA3AF", "#1b2029ff", "#cc3333", "#66cc99", "#2A313C",
	},
}

// CSSVar is one custom property of a theme.
type CSSVar struct {
	Name  string
	Value string
}

// Declaration renders the property for a style block. Names and values come
// from the fixed theme table, never from tenant input.
func (v CSSVar) Declaration() template.CSS {
	return template.CSS(v.Name + ": " + v.Value + ";")
}

// ResolveTheme returns the canonical theme name for name, matching case
// insensitively and falling back to DefaultTheme.
func ResolveTheme(name string) string {
	name = strings.TrimSpace(name)
	if _, ok := themes[name]; ok {
		return name
	}
	for known := range themes {
		if strings.EqualFold(known, name) {
			return known
		}
	}
	return DefaultTheme
}

// ThemeVars returns the --theme-* custom properties of the named theme.
func ThemeVars(name string) []CSSVar {
	p := themes[ResolveTheme(name)]
	vars := make([]CSSVar, len(colorKeys))
	for i, key := range colorKeys {
		vars[i] = CSSVar{Name: "--theme-" + kebab(key), Value: p[i]}
	}
	return vars
}

// ThemeNames lists every known theme.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	return names
}

func kebab(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

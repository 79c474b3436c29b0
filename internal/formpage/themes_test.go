package formpage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fern", "Fern"},
		{" sapphire ", "Sapphire"},
		{"DARK", "Dark"},
		{"", DefaultTheme},
		{"Light Lavender", DefaultTheme},
		{"Neon", DefaultTheme},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTheme(tt.in))
		})
	}
}

func TestThemeVars(t *testing.T) {
	vars := ThemeVars("Fern")
	require.Len(t, vars, len(colorKeys))
	assert.Equal(t, CSSVar{Name: "--theme-header-background", Value: "#2C4E38"}, vars[0])
	assert.Equal(t, "--theme-button-enabled-background", vars[11].Name)
	assert.Equal(t, "--theme-border-color", vars[len(vars)-1].Name)

	light := ThemeVars("unknown")
	assert.Equal(t, "#EEF2F7", light[18].Value)
	assert.Equal(t, "--theme-page-background", light[18].Name)
}

func TestEveryThemeIsComplete(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"Fern", "Lilac", "Lemoncello", "Sapphire", "Crimson", "Light", "Dark"},
		ThemeNames())

	for _, name := range ThemeNames() {
		for _, v := range ThemeVars(name) {
			assert.NotEmpty(t, v.Value, "%s %s", name, v.Name)
			assert.True(t, strings.HasPrefix(v.Name, "--theme-"))
		}
	}
}

func TestDeclaration(t *testing.T) {
	v := CSSVar{Name: "--theme-error-color", Value: "#cc3333"}
	assert.Equal(t, "--theme-error-color: #cc3333;", string(v.Declaration()))
}

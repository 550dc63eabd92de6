package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"en-US", "en-US"},
		{"en_US.UTF-8", "en-US"},
		{"zh_CN.UTF-8", "zh-CN"},
		{"de_DE@euro", "de-DE"},
		{"fr", "fr"},
		{"C", Fallback},
		{"POSIX", Fallback},
		{"", Fallback},
		{"  ", Fallback},
		{"not a locale!", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromEnv_Precedence(t *testing.T) {
	assert.Equal(t, "de-DE", FromEnv(envMap(map[string]string{
		"LC_ALL": "de_DE.UTF-8",
		"LANG":   "en_US.UTF-8",
	})))
	assert.Equal(t, "fr-FR", FromEnv(envMap(map[string]string{
		"LC_ALL":      "",
		"LC_MESSAGES": "fr_FR",
		"LANG":        "en_US.UTF-8",
	})))
	assert.Equal(t, "en-GB", FromEnv(envMap(map[string]string{"LANG": "en_GB"})))
	assert.Equal(t, Fallback, FromEnv(envMap(nil)))
}

func TestCurrent_Override(t *testing.T) {
	assert.Equal(t, "zh-CN", Current("zh_CN"))
}

func TestBuiltinBundle(t *testing.T) {
	b, err := Builtin()
	require.NoError(t, err)

	assert.Contains(t, b, "en-US")
	assert.Contains(t, b, "zh-CN")
}

func TestTranslator(t *testing.T) {
	b, err := Builtin()
	require.NoError(t, err)

	en := NewTranslator(b, "en_US.UTF-8")
	assert.Equal(t, "en-US", en.Locale())
	assert.Equal(t, "Default Assistant", en.Translate("assistant.default.name"))

	zh := NewTranslator(b, "zh-CN")
	assert.Equal(t, "zh-CN", zh.Locale())
	assert.Equal(t, "默认助手", zh.Translate("assistant.default.name"))
}

func TestTranslator_Fallbacks(t *testing.T) {
	b := Bundle{
		"en-US": {"greeting": "Hello", "only.en": "English"},
		"zh-CN": {"greeting": "你好"},
	}

	zh := NewTranslator(b, "zh-CN")
	assert.Equal(t, "English", zh.Translate("only.en"))
	assert.Equal(t, "assistant.a1.name", zh.Translate("assistant.a1.name"))

	other := NewTranslator(b, "ja-JP")
	assert.Equal(t, Fallback, other.Locale())
	assert.Equal(t, "Hello", other.Translate("greeting"))
}

func TestParseBundle_Errors(t *testing.T) {
	_, err := ParseBundle([]byte("zh-CN:\n  a: b\n"))
	assert.ErrorContains(t, err, "missing en-US")

	_, err = ParseBundle([]byte("en-US: [1, 2]\n"))
	assert.Error(t, err)

	_, err = ParseBundle([]byte("en-US:\n  a: b\n\"!!\":\n  a: b\n"))
	assert.ErrorContains(t, err, "invalid locale")
}

// Package locale supplies the current-locale and translate collaborators the
// migration steps consult.
package locale

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Fallback is used when no usable locale is configured.
const Fallback = "en-US"

// envOrder follows POSIX precedence for message catalogs.
var envOrder = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// Normalize converts a POSIX locale ("zh_CN.UTF-8", "de_DE@euro") or a
// BCP 47 tag into canonical BCP 47 form. Unparseable input and the C/POSIX
// locales yield Fallback.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return Fallback
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil || tag == language.Und {
		return Fallback
	}
	return tag.String()
}

// FromEnv resolves the locale from the environment using lookup.
// The first non-empty variable in LC_ALL, LC_MESSAGES, LANG order wins.
func FromEnv(lookup func(string) (string, bool)) string {
	for _, key := range envOrder {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return Normalize(v)
		}
	}
	return Fallback
}

// Current resolves the process locale. A non-empty override takes
// precedence over the environment.
func Current(override string) string {
	if strings.TrimSpace(override) != "" {
		return Normalize(override)
	}
	return FromEnv(os.LookupEnv)
}

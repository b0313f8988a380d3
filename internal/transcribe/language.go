package transcribe

import "strings"

// NormalizeLanguage maps a user-supplied language token onto the value passed to
// the model. An empty result means no override (auto-detect). Unknown tags pass
// through lowercased; the model may still reject them.
func NormalizeLanguage(s string) string {
	lang := strings.ToLower(strings.TrimSpace(s))
	switch lang {
	case "", "auto", "default":
		return ""
	case "id", "indo", "bahasa":
		return "indonesian"
	case "en", "eng":
		return "english"
	}
	return lang
}

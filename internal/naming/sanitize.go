package naming

import (
	"regexp"
	"strings"
)

// MaxNameLength leaves room for the extension and file-system path limits.
const MaxNameLength = 240

// whitespace covers the Unicode separators too; extracted names often carry NBSP or \v.
var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace   = regexp.MustCompile(`[\s\v\p{Z}\x{85}\x{1c}-\x{1f}]+`)
)

// Sanitize turns free text into a safe file name. It never fails; an empty
// input yields an empty string and the caller decides what to do with it.
func Sanitize(raw string) string {
	name := illegalChars.ReplaceAllString(raw, "")
	name = strings.TrimSpace(whitespace.ReplaceAllString(name, " "))

	runes := []rune(name)
	if len(runes) > MaxNameLength {
		name = string(runes[:MaxNameLength])
	}
	return name
}

// WithExtension appends ".pdf" unless the name already carries it.
func WithExtension(name string) string {
	if strings.HasSuffix(strings.ToLower(name), Extension) {
		return name
	}
	return name + Extension
}

// Extension is the extension every produced document name ends with.
const Extension = ".pdf"

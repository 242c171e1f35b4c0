// Package security guards the places where operator input becomes part of
// a filesystem path.
package security

import (
	"fmt"
	"strings"
)

// maxNameLen bounds names embedded in session directories and calibration
// file names.
const maxNameLen = 96

// SanitizeName makes a safe path component from an arbitrary string. Any
// character that is not an ASCII letter, digit, dot, underscore or dash
// becomes an underscore, runs of underscores collapse, and leading or
// trailing dots and underscores are trimmed. The result may be empty.
func SanitizeName(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "._")
}

// ValidateName rejects names that SanitizeName would change. It is used for
// names that must refer to an existing file verbatim.
func ValidateName(s string) error {
	if s == "" {
		return fmt.Errorf("name must not be empty")
	}
	if clean := SanitizeName(s); clean != s {
		return fmt.Errorf("invalid name %q (letters, digits, '.', '_' and '-' only, e.g. %q)", s, clean)
	}
	return nil
}

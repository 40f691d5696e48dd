package construct

import (
	"crypto/md5" //nolint:gosec // not used for security, only for stable id suffixes
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

const (
	maxLogicalIDLen = 255
	hashLen         = 8

	// hiddenID is removed from both the human readable part and the hash of a logical id.
	hiddenID = "Default"
	// hiddenFromHumanID is removed from the human readable part only.
	hiddenFromHumanID = "Resource"
)

// MakeLogicalID builds a template logical id from a construct path (relative to its stack). The
// id is a readable prefix followed by a hash of the full path so that different paths never
// collide after non-alphanumeric characters are removed.
func MakeLogicalID(components []string) string {
	var kept []string
	for _, c := range components {
		if c != hiddenID {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	if len(kept) == 1 {
		if candidate := removeNonAlphanumeric(kept[0]); len(candidate) <= maxLogicalIDLen {
			return candidate
		}
	}

	sum := md5.Sum([]byte(strings.Join(kept, PathSeparator))) //nolint:gosec
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))[:hashLen]

	human := new(strings.Builder)
	var last string
	for _, c := range kept {
		if c == hiddenFromHumanID {
			continue
		}
		part := removeNonAlphanumeric(strcase.ToCamel(c))
		// Avoid stuttering like "TableTable" when a child repeats its parent's id.
		if part == last {
			continue
		}
		human.WriteString(part)
		last = part
	}
	prefix := human.String()
	if len(prefix) > maxLogicalIDLen-hashLen {
		prefix = prefix[:maxLogicalIDLen-hashLen]
	}
	return prefix + hash
}

func removeNonAlphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, s)
}

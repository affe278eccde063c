package parsers

import (
	"strings"
	"unicode"

	"github.com/haukened/rr-doh/internal/dns/common/utils"
	"github.com/haukened/rr-doh/internal/dns/domain"
)

// ruleKindFromRaw returns BlockRuleSuffix when raw carries a "*." or "."
// marker and BlockRuleExact otherwise.
func ruleKindFromRaw(raw string) domain.BlockRuleKind {
	if strings.HasPrefix(raw, "*.") || strings.HasPrefix(raw, ".") {
		return domain.BlockRuleSuffix
	}
	return domain.BlockRuleExact
}

// isValidFQDN reports whether name is at most 255 bytes, has at least two
// non-empty labels of at most 63 bytes, and starts with a letter or digit.
func isValidFQDN(name string) bool {
	if len(name) > 255 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
	}
	first := []rune(labels[0])[0]
	return unicode.IsLetter(first) || unicode.IsDigit(first)
}

// normalizeDomainName strips a suffix marker and canonicalizes the rest.
func normalizeDomainName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "*.")
	name = strings.TrimPrefix(name, ".")
	return utils.CanonicalDNSName(name)
}

// classifyLine reports whether line is blank or a whole-line comment.
func classifyLine(line string) (empty, comment bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, false
	}
	return false, strings.HasPrefix(trimmed, "#")
}

func stripInlineComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

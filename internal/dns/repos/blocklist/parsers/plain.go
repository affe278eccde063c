package parsers

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/domain"
)

// ParsePlainList parses a newline-delimited list of names. Entries are exact
// unless prefixed with "*." or ".", which makes them suffix rules covering
// the name and everything below it. '#' starts a comment.
func ParsePlainList(r io.Reader, source string, logger log.Logger, now time.Time) ([]domain.BlockRule, error) {
	scanner := bufio.NewScanner(r)

	// keyed by name and kind so one name may carry both
	seen := make(map[string]struct{})
	out := make([]domain.BlockRule, 0, 256)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())
		if empty, comment := classifyLine(line); empty || comment {
			continue
		}

		s := strings.TrimSpace(stripInlineComment(line))
		kind := ruleKindFromRaw(s)
		name := normalizeDomainName(s)
		if !isValidFQDN(name) {
			logger.Debug(map[string]any{"source": source, "line": lineNum, "raw": s}, "skip_invalid_fqdn")
			continue
		}

		key := name + "|" + kind.String()
		if _, ok := seen[key]; ok {
			continue
		}
		rule, err := domain.NewBlockRule(name, kind, source, now)
		if err != nil {
			logger.Debug(map[string]any{"source": source, "line": lineNum, "error": err}, "skip_rule")
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_plain_list_done")
	return out, nil
}

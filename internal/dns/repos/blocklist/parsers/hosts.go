package parsers

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/common/utils"
	"github.com/haukened/rr-doh/internal/dns/domain"
)

// ParseHostsFile reads an /etc/hosts style list and returns one exact rule per
// hostname. The address column is ignored. Wildcards and names beginning with
// '.' are not hosts syntax and are skipped, as are duplicates.
func ParseHostsFile(r io.Reader, source string, logger log.Logger, now time.Time) ([]domain.BlockRule, error) {
	scanner := bufio.NewScanner(r)

	seen := make(map[string]struct{})
	out := make([]domain.BlockRule, 0, 256)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())
		if empty, comment := classifyLine(line); empty || comment {
			continue
		}

		fields := strings.Fields(stripInlineComment(line))
		if len(fields) < 2 {
			logger.Debug(map[string]any{"source": source, "line": lineNum}, "hosts_no_hostnames")
			continue
		}

		for _, raw := range fields[1:] {
			if strings.HasPrefix(raw, ".") || strings.Contains(raw, "*") {
				logger.Debug(map[string]any{"source": source, "line": lineNum, "raw": raw}, "hosts_skip_invalid_token")
				continue
			}
			name := utils.CanonicalDNSName(raw)
			if !isValidFQDN(name) {
				logger.Debug(map[string]any{"source": source, "line": lineNum, "name": name}, "hosts_skip_invalid_fqdn")
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			rule, err := domain.NewBlockRule(name, domain.BlockRuleExact, source, now)
			if err != nil {
				logger.Debug(map[string]any{"source": source, "line": lineNum, "error": err}, "hosts_skip_rule")
				continue
			}
			seen[name] = struct{}{}
			out = append(out, rule)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_hosts_done")
	return out, nil
}

// Package parsers turns blocklist files into domain.BlockRule values.
package parsers

import (
	"bufio"
	"bytes"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/haukened/rr-doh/internal/dns/common/log"
	"github.com/haukened/rr-doh/internal/dns/domain"
)

// Format identifies a blocklist file layout.
type Format int

const (
	FormatPlain Format = iota
	FormatHosts
)

func (f Format) String() string {
	if f == FormatHosts {
		return "hosts"
	}
	return "plain"
}

// DetectFormat inspects the first meaningful line of data. A line that starts
// with an IP address followed by at least one more field marks a hosts file.
func DetectFormat(data []byte) Format {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := stripLineBOM(sc.Text())
		if empty, comment := classifyLine(line); empty || comment {
			continue
		}
		fields := strings.Fields(stripInlineComment(line))
		if len(fields) >= 2 {
			if _, err := netip.ParseAddr(fields[0]); err == nil {
				return FormatHosts
			}
		}
		return FormatPlain
	}
	return FormatPlain
}

// ParseFile reads path, detects its format and parses it. Rules are attributed
// to the file's path.
func ParseFile(path string, logger log.Logger, now time.Time) ([]domain.BlockRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blocklist %s: %w", path, err)
	}
	format := DetectFormat(data)

	var rules []domain.BlockRule
	switch format {
	case FormatHosts:
		rules, err = ParseHostsFile(bytes.NewReader(data), path, logger, now)
	default:
		rules, err = ParsePlainList(bytes.NewReader(data), path, logger, now)
	}
	if err != nil {
		return nil, fmt.Errorf("parse blocklist %s: %w", path, err)
	}

	logger.Info(map[string]any{
		"source": path,
		"format": format.String(),
		"rules":  len(rules),
	}, "Parsed blocklist file")
	return rules, nil
}

// ParseFiles parses every path in order and concatenates the rules.
func ParseFiles(paths []string, logger log.Logger, now time.Time) ([]domain.BlockRule, error) {
	var all []domain.BlockRule
	for _, p := range paths {
		rules, err := ParseFile(p, logger, now)
		if err != nil {
			return nil, err
		}
		all = append(all, rules...)
	}
	return all, nil
}

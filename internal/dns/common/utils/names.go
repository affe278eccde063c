// Package utils holds helpers for handling domain names outside the wire codec.
package utils

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalDNSName returns name lowercased, trimmed of surrounding whitespace
// and without trailing dots. Blocklist keys and comparisons use this form.
func CanonicalDNSName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimRight(name, ".")
}

// ReverseLabels returns the canonical name with its labels in reverse order,
// "ads.example.com" becoming "com.example.ads". Suffix rules are indexed
// this way so that a prefix scan finds every rule under a parent.
func ReverseLabels(name string) string {
	labels := strings.Split(CanonicalDNSName(name), ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, ".")
}

// Suffixes lists name and each of its parent domains, most specific first.
// "a.b.c" yields ["a.b.c", "b.c", "c"]. The root yields nothing.
func Suffixes(name string) []string {
	name = CanonicalDNSName(name)
	if name == "" {
		return nil
	}
	out := []string{name}
	for i := 0; i < len(name); i++ {
		if name[i] == '.' && i+1 < len(name) {
			out = append(out, name[i+1:])
		}
	}
	return out
}

// Zone returns the registrable domain (eTLD+1) of name, falling back to the
// canonical name when the public suffix list has no answer.
func Zone(name string) string {
	name = CanonicalDNSName(name)
	zone, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return name
	}
	return zone
}

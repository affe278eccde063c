package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BlockRuleKind defines how a query filter rule matches names.
type BlockRuleKind uint8

const (
	// BlockRuleExact matches only the listed name.
	BlockRuleExact BlockRuleKind = iota
	// BlockRuleSuffix matches the listed name and every name below it.
	BlockRuleSuffix
)

func (k BlockRuleKind) String() string {
	switch k {
	case BlockRuleExact:
		return "exact"
	case BlockRuleSuffix:
		return "suffix"
	default:
		return fmt.Sprintf("BlockRuleKind(%d)", uint8(k))
	}
}

// BlockRule is one entry loaded from a blocklist file.
// Name is canonical: lower case, no trailing dot.
type BlockRule struct {
	Name    string
	Kind    BlockRuleKind
	Source  string // file the rule was read from
	AddedAt time.Time
}

// NewBlockRule trims its inputs and validates the result.
func NewBlockRule(name string, kind BlockRuleKind, source string, addedAt time.Time) (BlockRule, error) {
	r := BlockRule{
		Name:    strings.TrimSpace(name),
		Kind:    kind,
		Source:  strings.TrimSpace(source),
		AddedAt: addedAt,
	}
	return r, r.Validate()
}

// Validate checks the rule has a name, a source, a timestamp and a known kind.
func (r BlockRule) Validate() error {
	var errs []error
	if r.Name == "" {
		errs = append(errs, errors.New("rule name must not be empty"))
	}
	if r.Source == "" {
		errs = append(errs, errors.New("rule source must not be empty"))
	}
	if r.AddedAt.IsZero() {
		errs = append(errs, errors.New("rule addedAt must be set"))
	}
	if r.Kind != BlockRuleExact && r.Kind != BlockRuleSuffix {
		errs = append(errs, fmt.Errorf("unsupported BlockRuleKind: %d", r.Kind))
	}
	return errors.Join(errs...)
}

// BlockDecision is the outcome of checking a name against the query filter.
// The zero value means "not blocked".
type BlockDecision struct {
	Blocked     bool
	MatchedRule string // canonical name of the matching rule
	Source      string
	Kind        BlockRuleKind
}

// krishidev/chat/filter.go
package chat

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RefusalMessage is the fixed reply for questions outside agriculture.
const RefusalMessage = "❌ I can only answer agriculture-related questions."

//go:embed rules.yaml
var defaultRules []byte

type Kind int

const (
	// KindIdentity means a canned answer applies, no model call.
	KindIdentity Kind = iota
	// KindOutOfDomain means the fixed refusal applies, no model call.
	KindOutOfDomain
	// KindInDomain means the question goes to the model.
	KindInDomain
)

type Classification struct {
	Kind   Kind
	Answer string // set only for KindIdentity
}

type identityRule struct {
	Trigger string `yaml:"trigger"`
	Answer  string `yaml:"answer"`
}

type ruleFile struct {
	Identity []identityRule `yaml:"identity"`
	Keywords []string       `yaml:"keywords"`
}

// Filter classifies questions using an ordered identity table and an
// agriculture keyword set. Matching is case-insensitive substring search.
type Filter struct {
	identity []identityRule
	keywords []string
}

// NewFilter builds a Filter from the embedded rule table.
func NewFilter() (*Filter, error) {
	return NewFilterFromYAML(defaultRules)
}

// NewFilterFromYAML builds a Filter from a rules document, normalizing
// triggers and keywords to lower case.
func NewFilterFromYAML(data []byte) (*Filter, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse filter rules: %w", err)
	}
	if len(rf.Keywords) == 0 {
		return nil, fmt.Errorf("filter rules: empty keyword set")
	}
	f := &Filter{}
	for _, rule := range rf.Identity {
		rule.Trigger = strings.ToLower(strings.TrimSpace(rule.Trigger))
		if rule.Trigger == "" {
			continue
		}
		f.identity = append(f.identity, rule)
	}
	for _, kw := range rf.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			f.keywords = append(f.keywords, kw)
		}
	}
	return f, nil
}

// Classify is a pure function of the question text: identity triggers are
// checked in table order first, then any keyword hit makes the question
// in-domain.
func (f *Filter) Classify(text string) Classification {
	lower := strings.ToLower(text)
	for _, rule := range f.identity {
		if strings.Contains(lower, rule.Trigger) {
			return Classification{Kind: KindIdentity, Answer: rule.Answer}
		}
	}
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return Classification{Kind: KindInDomain}
		}
	}
	return Classification{Kind: KindOutOfDomain}
}

package intake

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	RuleDomain  = "domain"
	RuleAddress = "address"
)

// PatternRule is a structural heuristic for likely-scam addresses.
type PatternRule struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

type compiledRule struct {
	name string
	re   *regexp.Regexp
}

// ScamRegistry holds known-bad domains, addresses and pattern rules.
// It has no mutators; build a new one to change the lists.
type ScamRegistry struct {
	domains   map[string]struct{}
	addresses map[string]struct{}
	patterns  []compiledRule
}

type registryDocument struct {
	Domains   []string      `yaml:"domains"`
	Addresses []string      `yaml:"addresses"`
	Patterns  []PatternRule `yaml:"patterns"`
}

func NewScamRegistry(domains, addresses []string, rules []PatternRule) (*ScamRegistry, error) {
	registry := &ScamRegistry{
		domains:   make(map[string]struct{}, len(domains)),
		addresses: make(map[string]struct{}, len(addresses)),
		patterns:  make([]compiledRule, 0, len(rules)),
	}

	for _, d := range domains {
		if d = Normalize(d); d != "" {
			registry.domains[d] = struct{}{}
		}
	}
	for _, a := range addresses {
		if a = Normalize(a); a != "" {
			registry.addresses[a] = struct{}{}
		}
	}
	for i, rule := range rules {
		if rule.Expression == "" {
			return nil, errors.Errorf("pattern rule %d has no expression", i)
		}
		re, err := regexp.Compile(rule.Expression)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern rule %q", rule.Name)
		}
		name := rule.Name
		if name == "" {
			name = rule.Expression
		}
		registry.patterns = append(registry.patterns, compiledRule{name: name, re: re})
	}

	return registry, nil
}

// DefaultScamRegistry returns the built-in lists.
func DefaultScamRegistry() *ScamRegistry {
	registry, err := NewScamRegistry(
		[]string{
			"ourtimesupport.net",
			"matchsupportteam.com",
			"datingverification.org",
			"customerverify-center.com",
		},
		[]string{
			"nick10@ourtimesupport.com",
		},
		[]PatternRule{
			{Name: "digits_outlook", Expression: `\d{3,}[^@]*@outlook\.com$`},
			{Name: "special_chars_yahoo", Expression: `[%+][^@]*@yahoo\.com$`},
		},
	)
	if err != nil {
		panic(err)
	}
	return registry
}

// LoadScamRegistry parses a YAML registry document. An empty document yields an empty registry.
func LoadScamRegistry(r io.Reader) (*ScamRegistry, error) {
	var doc registryDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to decode scam registry")
	}
	return NewScamRegistry(doc.Domains, doc.Addresses, doc.Patterns)
}

func LoadScamRegistryFile(path string) (*ScamRegistry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open scam registry")
	}
	defer f.Close()

	return LoadScamRegistry(f)
}

// Match reports the first rule that flags the address, checking domains,
// then exact addresses, then patterns.
func (r *ScamRegistry) Match(email, domain string) (string, bool) {
	if _, ok := r.domains[domain]; ok {
		return RuleDomain + ":" + domain, true
	}
	if _, ok := r.addresses[email]; ok {
		return RuleAddress, true
	}
	for _, p := range r.patterns {
		if p.re.MatchString(email) {
			return "pattern:" + p.name, true
		}
	}
	return "", false
}

func (r *ScamRegistry) Counts() (domains, addresses, patterns int) {
	return len(r.domains), len(r.addresses), len(r.patterns)
}

func (r *ScamRegistry) String() string {
	d, a, p := r.Counts()
	return fmt.Sprintf("scam registry: %d domains, %d addresses, %d patterns", d, a, p)
}

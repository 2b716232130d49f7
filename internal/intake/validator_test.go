package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	calls   atomic.Int32
	results map[string]LookupResult
}

func newFakeResolver(results map[string]LookupResult) *fakeResolver {
	return &fakeResolver{results: results}
}

func (f *fakeResolver) LookupMX(_ context.Context, domain string) LookupResult {
	f.calls.Add(1)
	if res, ok := f.results[domain]; ok {
		return res
	}
	return NotFound()
}

func mxFor(domains ...string) map[string]LookupResult {
	results := make(map[string]LookupResult, len(domains))
	for _, d := range domains {
		results[d] = Found(MXRecord{Host: "mx1." + d, Preference: 10})
	}
	return results
}

func TestValidator_Scenarios(t *testing.T) {
	resolver := newFakeResolver(mxFor("example.com", "outlook.com", "ourtimesupport.com"))
	v := NewValidator(DefaultScamRegistry(), resolver)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    string
		email    string
		accepted bool
		reason   Reason
	}{
		{"mixed case with whitespace", "  USER@Example.COM ", "user@example.com", true, ReasonNone},
		{"not an email", "not-an-email", "not-an-email", false, ReasonInvalidFormat},
		{"listed scam address", "nick10@ourtimesupport.com", "nick10@ourtimesupport.com", false, ReasonFlaggedScam},
		{"digit heavy outlook", "buyer123456@outlook.com", "buyer123456@outlook.com", false, ReasonFlaggedScam},
		{"no mx records", "real@nonexistent-domain-xyz123.test", "real@nonexistent-domain-xyz123.test", false, ReasonInvalidDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(ctx, tt.input)
			assert.Equal(t, tt.email, result.Email)
			assert.Equal(t, tt.accepted, result.Accepted)
			assert.Equal(t, tt.reason, result.Reason)
		})
	}
}

func TestValidator_FormatRejectsBeforeOtherChecks(t *testing.T) {
	resolver := newFakeResolver(mxFor("example.com"))
	v := NewValidator(DefaultScamRegistry(), resolver)

	inputs := []string{
		"",
		"   ",
		"plainaddress",
		"user@",
		"@example.com",
		"user@example",
		"user@example.c",
		"user@example.c0m",
		"user name@example.com",
		"user@exa mple.com",
		"user@@example.com",
		"user!@example.com",
		strings.Repeat("a", 243) + "@example.com",
	}

	for _, input := range inputs {
		result := v.Validate(context.Background(), input)
		assert.False(t, result.Accepted, input)
		assert.Equal(t, ReasonInvalidFormat, result.Reason, input)
	}
	assert.Equal(t, int32(0), resolver.calls.Load())
}

func TestValidator_LengthLimit(t *testing.T) {
	v := NewValidator(DefaultScamRegistry(), newFakeResolver(mxFor("example.com")))

	local := strings.Repeat("a", MaxEmailLength-len("@example.com"))
	atLimit := local + "@example.com"
	require.Len(t, atLimit, MaxEmailLength)

	assert.True(t, v.Validate(context.Background(), atLimit).Accepted)
	assert.Equal(t, ReasonInvalidFormat, v.Validate(context.Background(), "a"+atLimit).Reason)
}

func TestValidator_NormalizationIsIdempotent(t *testing.T) {
	v := NewValidator(DefaultScamRegistry(), newFakeResolver(mxFor("example.com", "outlook.com")))
	ctx := context.Background()

	inputs := []string{
		"\tJane.Doe@EXAMPLE.com\n",
		"BUYER999@Outlook.COM",
		" nick10@OURTIMESUPPORT.com ",
		"Someone@Nowhere.Invalid",
		"Not An Email",
	}

	for _, input := range inputs {
		direct := v.Validate(ctx, input)
		normalized := v.Validate(ctx, Normalize(input))
		assert.Equal(t, direct, normalized, input)
		assert.Equal(t, Normalize(Normalize(input)), Normalize(input))
	}
}

func TestValidator_ScamCheckPrecedesLookup(t *testing.T) {
	resolver := newFakeResolver(mxFor("outlook.com", "yahoo.com", "ourtimesupport.net", "ourtimesupport.com"))
	v := NewValidator(DefaultScamRegistry(), resolver)

	tests := []struct {
		input string
		rule  string
	}{
		{"anyone@ourtimesupport.net", "domain:ourtimesupport.net"},
		{"nick10@ourtimesupport.com", RuleAddress},
		{"buyer123456@outlook.com", "pattern:digits_outlook"},
		{"jo+promo@yahoo.com", "pattern:special_chars_yahoo"},
		{"jo%x@yahoo.com", "pattern:special_chars_yahoo"},
	}

	for _, tt := range tests {
		result := v.Validate(context.Background(), tt.input)
		assert.Equal(t, ReasonFlaggedScam, result.Reason, tt.input)
		assert.Equal(t, tt.rule, result.MatchedRule, tt.input)
		assert.True(t, result.IsScam())
		assert.Empty(t, result.Lookup)
	}
	assert.Equal(t, int32(0), resolver.calls.Load())
}

func TestValidator_PatternsDoNotOverreach(t *testing.T) {
	v := NewValidator(DefaultScamRegistry(), newFakeResolver(mxFor("outlook.com", "yahoo.com", "gmail.com")))

	for _, input := range []string{"buyer12@outlook.com", "jo.doe@yahoo.com", "buyer123456@gmail.com", "nick11@ourtimesupport.com"} {
		result := v.Validate(context.Background(), input)
		assert.NotEqual(t, ReasonFlaggedScam, result.Reason, input)
	}
}

func TestValidator_LookupFailuresAreInvalidDomain(t *testing.T) {
	tests := []struct {
		name     string
		resolver MXResolver
		status   LookupStatus
	}{
		{
			name:     "not found",
			resolver: ResolverFunc(func(context.Context, string) LookupResult { return NotFound() }),
			status:   LookupNotFound,
		},
		{
			name:     "resolver error",
			resolver: ResolverFunc(func(context.Context, string) LookupResult { return Failed(errors.New("i/o timeout")) }),
			status:   LookupFailed,
		},
		{
			name:     "found without records",
			resolver: ResolverFunc(func(context.Context, string) LookupResult { return LookupResult{Status: LookupFound} }),
			status:   LookupFound,
		},
		{
			name:     "empty status",
			resolver: ResolverFunc(func(context.Context, string) LookupResult { return LookupResult{} }),
			status:   LookupFailed,
		},
		{
			name:     "resolver panics",
			resolver: ResolverFunc(func(context.Context, string) LookupResult { panic("resolver exhausted") }),
			status:   LookupFailed,
		},
		{
			name:     "no resolver",
			resolver: nil,
			status:   LookupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(DefaultScamRegistry(), tt.resolver)

			var result Result
			require.NotPanics(t, func() {
				result = v.Validate(context.Background(), "person@example.com")
			})
			assert.False(t, result.Accepted)
			assert.Equal(t, ReasonInvalidDomain, result.Reason)
			assert.Equal(t, tt.status, result.Lookup)
			assert.Equal(t, "example.com", result.Domain)
		})
	}
}

func TestValidator_CancelledContextSkipsLookup(t *testing.T) {
	resolver := newFakeResolver(mxFor("example.com"))
	v := NewValidator(DefaultScamRegistry(), resolver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := v.Validate(ctx, "person@example.com")
	assert.Equal(t, ReasonInvalidDomain, result.Reason)
	assert.Equal(t, int32(0), resolver.calls.Load())
}

func TestValidator_AcceptedResult(t *testing.T) {
	v := NewValidator(nil, newFakeResolver(mxFor("example.com")))

	result := v.Validate(context.Background(), "Person@Example.com")
	assert.True(t, result.Accepted)
	assert.Equal(t, ReasonNone, result.Reason)
	assert.Equal(t, "example.com", result.Domain)
	assert.Equal(t, LookupFound, result.Lookup)
	assert.Empty(t, result.MatchedRule)
	assert.Equal(t, []string{"mx1.example.com"}, result.MXHosts)
}

func TestValidator_MXHostsOrderedByPreference(t *testing.T) {
	resolver := ResolverFunc(func(context.Context, string) LookupResult {
		return Found(
			MXRecord{Host: "backup.example.com", Preference: 20},
			MXRecord{Host: "primary.example.com", Preference: 5},
			MXRecord{Host: "second.example.com", Preference: 10},
		)
	})
	v := NewValidator(nil, resolver)

	result := v.Validate(context.Background(), "person@example.com")
	require.True(t, result.Accepted)
	assert.Equal(t, []string{"primary.example.com", "second.example.com", "backup.example.com"}, result.MXHosts)
}

func TestValidator_ConcurrentUse(t *testing.T) {
	resolver := newFakeResolver(mxFor("example.com", "outlook.com"))
	v := NewValidator(DefaultScamRegistry(), resolver)

	inputs := map[string]Reason{
		"a@example.com":           ReasonNone,
		"buyer123456@outlook.com": ReasonFlaggedScam,
		"bad":                     ReasonInvalidFormat,
		"x@missing.org":           ReasonInvalidDomain,
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for input, want := range inputs {
			wg.Add(1)
			go func(input string, want Reason) {
				defer wg.Done()
				assert.Equal(t, want, v.Validate(context.Background(), input).Reason, input)
			}(input, want)
		}
	}
	wg.Wait()
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", DomainOf("a@example.com"))
	assert.Equal(t, "c.com", DomainOf("a@b@c.com"))
	assert.Equal(t, "", DomainOf("no-at-sign"))
	assert.Equal(t, "", DomainOf("trailing@"))
}

func TestNormalize_StripsByteOrderMark(t *testing.T) {
	assert.Equal(t, "user@example.com", Normalize("\ufeffUser@Example.com\u00a0"))

	v := NewValidator(DefaultScamRegistry(), newFakeResolver(mxFor("example.com")))
	result := v.Validate(context.Background(), "\ufeffuser@example.com")
	assert.True(t, result.Accepted)
	assert.Equal(t, "user@example.com", result.Email)
}

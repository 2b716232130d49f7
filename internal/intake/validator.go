package intake

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"

	"github.com/customeros/waitlist/internal/tracing"
)

const MaxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Normalize lower-cases an address and trims surrounding whitespace, including a
// byte order mark pasted in from some clients.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimFunc(raw, isTrimmable))
}

func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

// ValidFormat reports whether a normalized address is syntactically acceptable.
func ValidFormat(email string) bool {
	if len(email) > MaxEmailLength {
		return false
	}
	return emailPattern.MatchString(email)
}

// DomainOf returns the part after the last '@', or "" when there is none.
func DomainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return email[at+1:]
}

// Validator decides whether a candidate address may join the waitlist.
// It is safe for concurrent use.
type Validator struct {
	registry *ScamRegistry
	resolver MXResolver
}

func NewValidator(registry *ScamRegistry, resolver MXResolver) *Validator {
	if registry == nil {
		registry = DefaultScamRegistry()
	}
	return &Validator{
		registry: registry,
		resolver: resolver,
	}
}

// Validate runs normalize, format, scam and MX checks in that order and stops at
// the first rejection. It never returns an error: every outcome is a Result.
func (v *Validator) Validate(ctx context.Context, raw string) Result {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Validator.Validate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	email := Normalize(raw)

	if !ValidFormat(email) {
		span.LogFields(log.String("result.reason", ReasonInvalidFormat.String()))
		return rejected(email, DomainOf(email), ReasonInvalidFormat)
	}

	domain := DomainOf(email)
	tracing.TagEmailDomain(span, domain)

	if rule, flagged := v.registry.Match(email, domain); flagged {
		span.LogFields(log.String("result.reason", ReasonFlaggedScam.String()), log.String("result.rule", rule))
		result := rejected(email, domain, ReasonFlaggedScam)
		result.MatchedRule = rule
		return result
	}

	lookup := v.lookupMX(ctx, domain)
	span.LogFields(log.String("mx.status", lookup.Status.String()), log.Int("mx.records", len(lookup.Records)))
	if lookup.Status != LookupFound || len(lookup.Records) == 0 {
		if lookup.Err != nil {
			span.LogFields(log.Error(lookup.Err))
		}
		result := rejected(email, domain, ReasonInvalidDomain)
		result.Lookup = lookup.Status
		return result
	}

	return accepted(email, domain, lookup.Records)
}

func (v *Validator) lookupMX(ctx context.Context, domain string) (result LookupResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Failed(fmt.Errorf("mx resolver panic: %v", r))
		}
	}()

	if v.resolver == nil {
		return Failed(fmt.Errorf("no mx resolver configured"))
	}
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}

	result = v.resolver.LookupMX(ctx, domain)
	if result.Status == "" {
		result.Status = LookupFailed
	}
	return result
}

func (v *Validator) Registry() *ScamRegistry {
	return v.registry
}

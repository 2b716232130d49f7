package email_filter

import (
	"context"

	"github.com/customeros/mailsherpa/domaincheck"
	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"

	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/enum"
	"github.com/customeros/waitlist/internal/tracing"
)

type syntaxFlags struct {
	valid           bool
	domain          string
	roleAccount     bool
	systemGenerated bool
	freeAccount     bool
}

type emailFilterService struct {
	inspect            func(email string) syntaxFlags
	primaryDomain      func(domain string) (bool, string)
	checkPrimaryDomain bool
}

// NewEmailFilterService classifies addresses with mailsherpa. The primary domain check
// makes network calls and is only run when checkPrimaryDomain is set.
func NewEmailFilterService(checkPrimaryDomain bool) interfaces.EmailFilterService {
	return &emailFilterService{
		inspect:            mailsherpaSyntax,
		primaryDomain:      domaincheck.PrimaryDomainCheck,
		checkPrimaryDomain: checkPrimaryDomain,
	}
}

func mailsherpaSyntax(email string) syntaxFlags {
	validation := mailvalidate.ValidateEmailSyntax(email)
	return syntaxFlags{
		valid:           validation.IsValid,
		domain:          validation.Domain,
		roleAccount:     validation.IsRoleAccount,
		systemGenerated: validation.IsSystemGenerated,
		freeAccount:     validation.IsFreeAccount,
	}
}

// Classify never rejects: an address that got this far was already accepted.
func (s *emailFilterService) Classify(ctx context.Context, email string) (enum.AddressClassification, string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailFilterService.Classify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	classification, reason := s.classify(email)
	span.LogFields(log.String("result.classification", classification.String()), log.String("result.reason", reason))
	return classification, reason
}

func (s *emailFilterService) classify(email string) (enum.AddressClassification, string) {
	flags := s.inspect(email)
	if !flags.valid {
		return enum.AddressOK, "syntax not recognized by classifier"
	}

	switch {
	case flags.roleAccount:
		return enum.AddressRoleAccount, "user is a role account"
	case flags.systemGenerated:
		return enum.AddressSystemGenerated, "user looks system generated"
	case flags.freeAccount:
		return enum.AddressFreeAccount, "domain is a free mail provider"
	}

	if s.checkPrimaryDomain && flags.domain != "" {
		isPrimary, primary := s.primaryDomain(flags.domain)
		if !isPrimary && primary != "" {
			return enum.AddressOK, "secondary domain of " + primary
		}
	}

	return enum.AddressOK, ""
}

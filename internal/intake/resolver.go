package intake

import (
	"context"
)

type LookupStatus string

const (
	LookupFound    LookupStatus = "found"
	LookupNotFound LookupStatus = "not_found"
	LookupFailed   LookupStatus = "failed"
)

func (s LookupStatus) String() string {
	return string(s)
}

type MXRecord struct {
	Host       string
	Preference uint16
}

// LookupResult is the outcome of one MX query. Err is only set for LookupFailed.
type LookupResult struct {
	Status  LookupStatus
	Records []MXRecord
	Err     error
}

// MXResolver resolves the mail exchangers of a domain.
type MXResolver interface {
	LookupMX(ctx context.Context, domain string) LookupResult
}

// ResolverFunc adapts a plain function to MXResolver.
type ResolverFunc func(ctx context.Context, domain string) LookupResult

func (f ResolverFunc) LookupMX(ctx context.Context, domain string) LookupResult {
	return f(ctx, domain)
}

func Found(records ...MXRecord) LookupResult {
	if len(records) == 0 {
		return NotFound()
	}
	return LookupResult{Status: LookupFound, Records: records}
}

func NotFound() LookupResult {
	return LookupResult{Status: LookupNotFound}
}

func Failed(err error) LookupResult {
	return LookupResult{Status: LookupFailed, Err: err}
}

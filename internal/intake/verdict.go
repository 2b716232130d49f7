package intake

import "sort"

// Reason explains why a candidate address was rejected.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonInvalidFormat Reason = "invalid_format"
	ReasonInvalidDomain Reason = "invalid_domain"
	ReasonFlaggedScam   Reason = "flagged_scam"
)

func (r Reason) String() string {
	return string(r)
}

// Result is the verdict for a single candidate address.
type Result struct {
	// Email is the normalized form, the one callers persist and deduplicate on.
	Email    string
	Domain   string
	Accepted bool
	Reason   Reason
	// MatchedRule names the registry entry that flagged the address.
	MatchedRule string
	// Lookup is the MX lookup outcome, empty when the lookup never ran.
	Lookup LookupStatus
	// MXHosts lists the exchangers of an accepted domain, most preferred first.
	MXHosts []string
}

func (r Result) IsScam() bool {
	return r.Reason == ReasonFlaggedScam
}

func accepted(email, domain string, records []MXRecord) Result {
	sorted := make([]MXRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Preference < sorted[j].Preference })

	hosts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		hosts = append(hosts, r.Host)
	}
	return Result{Email: email, Domain: domain, Accepted: true, Lookup: LookupFound, MXHosts: hosts}
}

func rejected(email, domain string, reason Reason) Result {
	return Result{Email: email, Domain: domain, Reason: reason}
}

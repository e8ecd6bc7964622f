package fairness

import (
	"fmt"
	"sort"
	"strings"

	"biasclean/domain/core"
)

// Domain selects the regulatory context whose weight table applies to a run.
// Domain-specific behaviour is data (weight tables), not code.
type Domain string

const (
	DomainJustice    Domain = "justice"
	DomainHealth     Domain = "health"
	DomainFinance    Domain = "finance"
	DomainEducation  Domain = "education"
	DomainHiring     Domain = "hiring"
	DomainBusiness   Domain = "business"
	DomainGovernance Domain = "governance"
)

// Recognized protected attribute names
const (
	AttrEthnicity           = "Ethnicity"
	AttrRace                = "Race"
	AttrSocioeconomicStatus = "SocioeconomicStatus"
	AttrRegion              = "Region"
	AttrAge                 = "Age"
	AttrMigrationStatus     = "MigrationStatus"
	AttrDisabilityStatus    = "DisabilityStatus"
	AttrGender              = "Gender"
)

var recognizedAttributes = map[string]bool{
	AttrEthnicity:           true,
	AttrRace:                true,
	AttrSocioeconomicStatus: true,
	AttrRegion:              true,
	AttrAge:                 true,
	AttrMigrationStatus:     true,
	AttrDisabilityStatus:    true,
	AttrGender:              true,
}

// UK 2025 domain weight tables
var domainWeights = map[Domain]map[string]float64{
	DomainJustice: {
		AttrEthnicity: 0.25, AttrSocioeconomicStatus: 0.20, AttrRegion: 0.15,
		AttrAge: 0.15, AttrMigrationStatus: 0.10, AttrDisabilityStatus: 0.10, AttrGender: 0.05,
	},
	DomainHealth: {
		AttrEthnicity: 0.25, AttrSocioeconomicStatus: 0.20, AttrDisabilityStatus: 0.15,
		AttrGender: 0.15, AttrRegion: 0.10, AttrAge: 0.10, AttrMigrationStatus: 0.05,
	},
	DomainFinance: {
		AttrSocioeconomicStatus: 0.30, AttrRegion: 0.20, AttrEthnicity: 0.20,
		AttrAge: 0.10, AttrGender: 0.10, AttrMigrationStatus: 0.05, AttrDisabilityStatus: 0.05,
	},
	DomainEducation: {
		AttrSocioeconomicStatus: 0.25, AttrEthnicity: 0.20, AttrRegion: 0.15,
		AttrDisabilityStatus: 0.15, AttrGender: 0.10, AttrAge: 0.10, AttrMigrationStatus: 0.05,
	},
	DomainHiring: {
		AttrEthnicity: 0.25, AttrGender: 0.20, AttrDisabilityStatus: 0.15,
		AttrSocioeconomicStatus: 0.15, AttrRegion: 0.10, AttrAge: 0.10, AttrMigrationStatus: 0.05,
	},
	DomainBusiness: {
		AttrEthnicity: 0.25, AttrGender: 0.20, AttrSocioeconomicStatus: 0.15,
		AttrRegion: 0.15, AttrAge: 0.10, AttrDisabilityStatus: 0.10, AttrMigrationStatus: 0.05,
	},
	DomainGovernance: {
		AttrEthnicity: 0.25, AttrGender: 0.20, AttrSocioeconomicStatus: 0.15,
		AttrRegion: 0.15, AttrMigrationStatus: 0.10, AttrDisabilityStatus: 0.10, AttrAge: 0.05,
	},
}

// Domains lists every supported domain in stable order
func Domains() []Domain {
	out := make([]Domain, 0, len(domainWeights))
	for d := range domainWeights {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseDomain normalizes and validates a domain name
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := domainWeights[d]; !ok {
		return "", fmt.Errorf("%w: %q (expected one of %v)", core.ErrUnknownDomain, s, Domains())
	}
	return d, nil
}

// Recognizes reports whether name is an accepted protected attribute for the domain
func (d Domain) Recognizes(name string) bool {
	return recognizedAttributes[name]
}

// DefaultWeights returns the domain's fixed weight table
func (d Domain) DefaultWeights() (WeightTable, error) {
	table, ok := domainWeights[d]
	if !ok {
		return WeightTable{}, fmt.Errorf("%w: %q", core.ErrUnknownDomain, d)
	}
	pairs := make([]AttributeWeight, 0, len(table))
	for name, w := range table {
		pairs = append(pairs, AttributeWeight{Attribute: name, Weight: w})
	}
	return NewWeightTable(d, pairs)
}

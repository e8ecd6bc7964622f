package testkit

import (
	"math"
	"math/rand"

	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
)

// BiasIntensity controls how strongly the domain biases are applied
type BiasIntensity string

const (
	IntensityHigh    BiasIntensity = "high"
	IntensityExtreme BiasIntensity = "extreme"
)

// UKGeneratorConfig configures the UK population generator
type UKGeneratorConfig struct {
	Domain    fairness.Domain `json:"domain"`
	Records   int             `json:"records"`
	Intensity BiasIntensity   `json:"intensity"`
	Seed      int64           `json:"seed"`
}

// DefaultUKConfig returns a 1,000 record high-bias health population
func DefaultUKConfig() UKGeneratorConfig {
	return UKGeneratorConfig{
		Domain:    fairness.DomainHealth,
		Records:   1000,
		Intensity: IntensityHigh,
		Seed:      42,
	}
}

// UK column names
const (
	ColOutcome = "Outcome"
	ColIncome  = "Income"
	ColTenure  = "Tenure"
)

// ONS 2021 census-style marginals
var (
	ukEthnicity = weighted{[]string{"White", "Asian", "Black", "Mixed", "Other"}, []float64{0.86, 0.08, 0.03, 0.02, 0.01}}
	ukRegion    = weighted{[]string{"London", "South East", "North West", "Scotland", "Wales", "Other"}, []float64{0.13, 0.14, 0.11, 0.08, 0.05, 0.49}}
	ukGender    = weighted{[]string{"Male", "Female", "Other"}, []float64{0.49, 0.50, 0.01}}
	ukDisabled  = weighted{[]string{"Yes", "No"}, []float64{0.22, 0.78}}
	ukSES       = weighted{[]string{"High", "Medium", "Low"}, []float64{0.30, 0.50, 0.20}}
	ukMigration = weighted{[]string{"UK-born", "Migrant"}, []float64{0.87, 0.13}}
)

// ukPerson is the raw draw before it becomes a record
type ukPerson struct {
	ethnicity, region, gender, disabled, ses, migration string
	age                                                 int
	income, tenure                                      float64
	outcome                                             int
	biased                                              bool
}

// UKDataGenerator produces synthetic UK populations with domain-specific
// intersectional outcome bias
type UKDataGenerator struct {
	config UKGeneratorConfig
	rng    *rand.Rand
}

// NewUKDataGenerator creates a new generator
func NewUKDataGenerator(config UKGeneratorConfig) *UKDataGenerator {
	return &UKDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// UKSchema is the column layout of generated UK datasets
func UKSchema() dataset.Schema {
	schema, _ := dataset.NewSchema([]dataset.Column{
		{Name: fairness.AttrEthnicity, Kind: dataset.KindCategorical},
		{Name: fairness.AttrRegion, Kind: dataset.KindCategorical},
		{Name: fairness.AttrAge, Kind: dataset.KindCategorical},
		{Name: fairness.AttrGender, Kind: dataset.KindCategorical},
		{Name: fairness.AttrDisabilityStatus, Kind: dataset.KindCategorical},
		{Name: fairness.AttrSocioeconomicStatus, Kind: dataset.KindCategorical},
		{Name: fairness.AttrMigrationStatus, Kind: dataset.KindCategorical},
		{Name: ColIncome, Kind: dataset.KindNumeric},
		{Name: ColTenure, Kind: dataset.KindNumeric},
		{Name: ColOutcome, Kind: dataset.KindNumeric},
	})
	return schema
}

// Generate builds the dataset
func (g *UKDataGenerator) Generate() (*dataset.Dataset, error) {
	records := make([]dataset.Record, 0, g.config.Records)
	for i := 0; i < g.config.Records; i++ {
		p := g.person()
		g.applyBias(&p)
		if g.config.Intensity == IntensityExtreme && p.biased && p.outcome == 1 && g.rng.Float64() < 0.9 {
			p.outcome = 0
		}
		records = append(records, dataset.Record{
			dataset.Text(p.ethnicity),
			dataset.Text(p.region),
			dataset.Text(AgeBand(p.age)),
			dataset.Text(p.gender),
			dataset.Text(p.disabled),
			dataset.Text(p.ses),
			dataset.Text(p.migration),
			dataset.Number(p.income),
			dataset.Number(p.tenure),
			dataset.Number(float64(p.outcome)),
		})
	}
	return dataset.New(UKSchema(), records)
}

func (g *UKDataGenerator) person() ukPerson {
	p := ukPerson{
		ethnicity: ukEthnicity.pick(g.rng),
		region:    ukRegion.pick(g.rng),
		gender:    ukGender.pick(g.rng),
		disabled:  ukDisabled.pick(g.rng),
		ses:       ukSES.pick(g.rng),
		migration: ukMigration.pick(g.rng),
		age:       18 + g.rng.Intn(62),
		outcome:   g.rng.Intn(2),
	}

	base := map[string]float64{"High": 52, "Medium": 34, "Low": 21}[p.ses]
	p.income = math.Round(base + 0.25*float64(p.age-18) + g.rng.NormFloat64()*6)
	if p.income < 8 {
		p.income = 8
	}
	p.tenure = math.Round(math.Max(0, 0.3*float64(p.age-18)+g.rng.NormFloat64()*3))
	return p
}

// applyBias mirrors the per-domain intersectional patterns
func (g *UKDataGenerator) applyBias(p *ukPerson) {
	set := func(positiveRate float64) {
		p.biased = true
		p.outcome = 0
		if g.rng.Float64() < positiveRate {
			p.outcome = 1
		}
	}
	minority := func(groups ...string) bool {
		for _, e := range groups {
			if p.ethnicity == e {
				return true
			}
		}
		return false
	}

	switch g.config.Domain {
	case fairness.DomainJustice:
		if p.ethnicity == "Black" {
			set(0.3)
			if p.gender == "Male" && p.age < 30 {
				set(0.2)
			}
		}
	case fairness.DomainHealth:
		if p.ses == "Low" && minority("Black", "Mixed", "Other") {
			set(0.3)
		}
		if p.disabled == "Yes" && minority("Black", "Asian") {
			set(0.4)
		}
	case fairness.DomainFinance:
		if p.migration == "Migrant" && p.ses == "Low" {
			set(0.2)
		} else if p.region != "London" {
			set(0.4)
		}
	case fairness.DomainEducation:
		if p.ses == "Low" && p.gender == "Female" && minority("Black", "Mixed") {
			set(0.25)
		}
	case fairness.DomainHiring:
		if p.gender == "Female" && minority("Black", "Asian") {
			set(0.3)
		}
		if p.age > 50 {
			set(0.35)
		}
	case fairness.DomainBusiness:
		if p.gender == "Female" && minority("Black", "Mixed", "Other") {
			set(0.2)
		}
	case fairness.DomainGovernance:
		if p.migration == "Migrant" && p.disabled == "Yes" && p.gender == "Female" {
			set(0.15)
		}
	}
}

// AgeBand buckets an age into the bands used as the Age attribute
func AgeBand(age int) string {
	switch {
	case age < 30:
		return "18-29"
	case age < 45:
		return "30-44"
	case age < 60:
		return "45-59"
	default:
		return "60+"
	}
}

// weighted is a categorical distribution
type weighted struct {
	labels []string
	probs  []float64
}

func (w weighted) pick(r *rand.Rand) string {
	u := r.Float64()
	acc := 0.0
	for i, p := range w.probs {
		acc += p
		if u < acc {
			return w.labels[i]
		}
	}
	return w.labels[len(w.labels)-1]
}

package testkit

import (
	"math"
	"math/rand"

	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
)

// Justice column names, following the public two-year recidivism extract
const (
	ColTwoYearRecid  = "two_year_recid"
	ColAge           = "age"
	ColPriorsCount   = "priors_count"
	ColJuvFelCount   = "juv_fel_count"
	ColChargeDegree  = "c_charge_degree"
	JusticeRecords   = 7214
)

// JusticeGeneratorConfig configures the recidivism-style generator
type JusticeGeneratorConfig struct {
	Records int   `json:"records"`
	Seed    int64 `json:"seed"`
}

// DefaultJusticeConfig matches the size of the public extract
func DefaultJusticeConfig() JusticeGeneratorConfig {
	return JusticeGeneratorConfig{Records: JusticeRecords, Seed: 42}
}

// race marginals and base two-year recidivism rates
var (
	justiceRace = weighted{
		[]string{"African-American", "Caucasian", "Hispanic", "Other", "Asian", "Native American"},
		[]float64{0.512, 0.340, 0.088, 0.053, 0.0045, 0.0025},
	}
	justiceRaceRate = map[string]float64{
		"African-American": 0.51, "Caucasian": 0.39, "Hispanic": 0.37,
		"Other": 0.35, "Asian": 0.28, "Native American": 0.55,
	}
	justiceEthnicity = map[string]string{
		"African-American": "Black", "Caucasian": "White", "Hispanic": "Hispanic",
		"Other": "Other", "Asian": "Asian", "Native American": "Other",
	}
	justiceGender = weighted{[]string{"Male", "Female"}, []float64{0.81, 0.19}}
)

// JusticeDataGenerator produces a recidivism dataset with race and gender disparity
type JusticeDataGenerator struct {
	config JusticeGeneratorConfig
	rng    *rand.Rand
}

// NewJusticeDataGenerator creates a new generator
func NewJusticeDataGenerator(config JusticeGeneratorConfig) *JusticeDataGenerator {
	return &JusticeDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// JusticeSchema is the column layout of generated justice datasets
func JusticeSchema() dataset.Schema {
	schema, _ := dataset.NewSchema([]dataset.Column{
		{Name: fairness.AttrEthnicity, Kind: dataset.KindCategorical},
		{Name: fairness.AttrRace, Kind: dataset.KindCategorical},
		{Name: fairness.AttrGender, Kind: dataset.KindCategorical},
		{Name: ColAge, Kind: dataset.KindNumeric},
		{Name: ColPriorsCount, Kind: dataset.KindNumeric},
		{Name: ColJuvFelCount, Kind: dataset.KindNumeric},
		{Name: ColChargeDegree, Kind: dataset.KindCategorical},
		{Name: ColTwoYearRecid, Kind: dataset.KindNumeric},
	})
	return schema
}

// Generate builds the dataset
func (g *JusticeDataGenerator) Generate() (*dataset.Dataset, error) {
	records := make([]dataset.Record, 0, g.config.Records)
	for i := 0; i < g.config.Records; i++ {
		race := justiceRace.pick(g.rng)
		gender := justiceGender.pick(g.rng)
		age := 18 + int(math.Min(52, g.rng.ExpFloat64()*14))
		priors := int(math.Min(38, g.rng.ExpFloat64()*3.2))
		if race == "African-American" {
			priors += g.rng.Intn(2)
		}
		juv := 0
		if age < 25 && g.rng.Float64() < 0.15 {
			juv = 1 + g.rng.Intn(3)
		}
		degree := "F"
		if g.rng.Float64() < 0.36 {
			degree = "M"
		}

		p := justiceRaceRate[race] + 0.02*float64(priors-3) - 0.004*float64(age-34) + 0.03*float64(juv)
		if gender == "Female" {
			p -= 0.11
		}
		recid := 0
		if g.rng.Float64() < math.Max(0.02, math.Min(0.95, p)) {
			recid = 1
		}

		records = append(records, dataset.Record{
			dataset.Text(justiceEthnicity[race]),
			dataset.Text(race),
			dataset.Text(gender),
			dataset.Number(float64(age)),
			dataset.Number(float64(priors)),
			dataset.Number(float64(juv)),
			dataset.Text(degree),
			dataset.Number(float64(recid)),
		})
	}
	return dataset.New(JusticeSchema(), records)
}

// JusticeWeights is the three-attribute table used by the recidivism scenario
func JusticeWeights() fairness.WeightTable {
	table, _ := fairness.NewWeightTable(fairness.DomainJustice, []fairness.AttributeWeight{
		{Attribute: fairness.AttrEthnicity, Weight: 0.25},
		{Attribute: fairness.AttrRace, Weight: 0.25},
		{Attribute: fairness.AttrGender, Weight: 0.05},
	})
	return table
}

package mitigation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"biasclean/domain/core"
	"biasclean/domain/dataset"
	"biasclean/domain/fairness"
	"biasclean/internal"
	bstats "biasclean/internal/stats"
)

// Candidate is one strategy's rebalanced copy of the iteration dataset
type Candidate struct {
	ID       core.CandidateID
	Strategy fairness.Strategy
	// Order is the strategy's position in the configured strategy list
	Order      int
	Dataset    *dataset.Dataset
	Added      int
	Removed    int
	Passes     []string
	Violations []string
}

// Modifications is the number of records added plus removed
func (c *Candidate) Modifications() int {
	return c.Added + c.Removed
}

// Profile is the run-baseline reference the synthesis constraints compare against
type Profile struct {
	Records     int
	OutcomeRate float64
	Features    []string
	Correlation *mat.SymDense
}

// GenerateInput is everything one candidate pass needs
type GenerateInput struct {
	Dataset  *dataset.Dataset
	Plan     Plan
	Strategy fairness.Strategy
	Order    int
	Baseline Profile
	Rand     *rand.Rand
}

// CandidateGenerator produces one candidate dataset for a strategy
type CandidateGenerator interface {
	Generate(ctx context.Context, in GenerateInput) (*Candidate, error)
}

// Generator is the constrained SMOTE-style oversampler
type Generator struct {
	OutcomeColumn        string
	PositiveLabel        string
	Protected            []string
	Neighbors            int
	ModificationCeiling  float64
	RetentionFloor       float64
	OutcomeTolerance     float64
	CorrelationTolerance float64

	logger *internal.Logger
}

var _ CandidateGenerator = (*Generator)(nil)

// NewGenerator builds a generator for one run
func NewGenerator(cfg fairness.RunConfig, positiveLabel string, weights fairness.WeightTable, logger *internal.Logger) *Generator {
	protected := make([]string, 0, weights.Len())
	for _, e := range weights.Entries {
		protected = append(protected, e.Attribute)
	}
	return &Generator{
		OutcomeColumn:        cfg.OutcomeColumn,
		PositiveLabel:        positiveLabel,
		Protected:            protected,
		Neighbors:            cfg.Neighbors,
		ModificationCeiling:  cfg.ModificationCeiling,
		RetentionFloor:       cfg.RetentionFloor,
		OutcomeTolerance:     cfg.OutcomeTolerance,
		CorrelationTolerance: cfg.CorrelationTolerance,
		logger:               logger.With("Generator"),
	}
}

// Profile captures the reference statistics of the run's input dataset
func (g *Generator) Profile(ds *dataset.Dataset) Profile {
	features := ds.NumericColumns(append([]string{g.OutcomeColumn}, g.Protected...)...)
	return Profile{
		Records:     ds.Len(),
		OutcomeRate: outcomeRate(ds, g.OutcomeColumn, g.PositiveLabel),
		Features:    features,
		Correlation: correlationOf(ds, features),
	}
}

// Generate runs one rebalancing pass per plan item in order. A pass that
// breaks a constraint is reverted and recorded; later passes still run.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*Candidate, error) {
	if in.Dataset == nil || in.Dataset.Len() == 0 {
		return nil, core.ErrEmptyDataset
	}
	if in.Rand == nil {
		return nil, errors.New("generator requires a random stream")
	}

	cand := &Candidate{
		ID:       core.NewCandidateID(),
		Strategy: in.Strategy,
		Order:    in.Order,
	}
	work := in.Dataset.Clone()
	records := work.Records

	capMods := int(math.Floor(g.ModificationCeiling * in.Strategy.CeilingMultiplier * float64(in.Dataset.Len())))
	minRecords := int(math.Ceil(g.RetentionFloor * float64(in.Baseline.Records)))
	scale := newScaler(work, in.Baseline.Features)

	for _, item := range in.Plan.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		budget := int(math.Floor(float64(item.Budget) * in.Strategy.CeilingMultiplier))
		if budget <= 0 {
			continue
		}
		tau := math.Min(1, item.Threshold*in.Strategy.Aggressiveness)

		next, added, removed := g.rebalance(work.Schema, records, item.Attribute, tau, budget, in.Strategy.RemovalShare, scale, in.Rand)
		if added+removed == 0 {
			continue
		}

		view := &dataset.Dataset{Schema: work.Schema, Records: next}
		if violation := g.check(view, cand.Modifications()+added+removed, capMods, minRecords, in.Baseline); violation != "" {
			cand.Violations = append(cand.Violations, fmt.Sprintf("%s: %s", item.Attribute, violation))
			g.logger.Debug("%s pass on %s reverted: %s", in.Strategy.Name, item.Attribute, violation)
			continue
		}

		records = next
		cand.Added += added
		cand.Removed += removed
		cand.Passes = append(cand.Passes, item.Attribute)
	}

	ds, err := dataset.New(work.Schema, records)
	if err != nil {
		return nil, err
	}
	cand.Dataset = ds
	g.logger.Trace("%s candidate: +%d -%d, %d violations", in.Strategy.Name, cand.Added, cand.Removed, len(cand.Violations))
	return cand, nil
}

// cell is one (category, outcome label) group of record indexes
type cell struct {
	category string
	label    string
	members  []int
	need     int
}

// rebalance returns a new record slice with synthetic records appended for
// under-represented cells and, when removalShare > 0, records dropped from
// over-represented ones. The input slice is left untouched.
func (g *Generator) rebalance(schema dataset.Schema, records []dataset.Record, attribute string, tau float64, budget int, removalShare float64, scale *scaler, r *rand.Rand) ([]dataset.Record, int, int) {
	attrIdx := schema.Index(attribute)
	outIdx := schema.Index(g.OutcomeColumn)
	if attrIdx < 0 || outIdx < 0 {
		return records, 0, 0
	}
	attrKind := schema.Columns[attrIdx].Kind
	outKind := schema.Columns[outIdx].Kind

	groups := make(map[string]map[string][]int)
	categoryCount := make(map[string]int)
	labelCount := make(map[string]int)
	total := 0
	for i, rec := range records {
		c, y := rec[attrIdx].Label(attrKind), rec[outIdx].Label(outKind)
		if c == "" || y == "" {
			continue
		}
		if groups[c] == nil {
			groups[c] = make(map[string][]int)
		}
		groups[c][y] = append(groups[c][y], i)
		categoryCount[c]++
		labelCount[y]++
		total++
	}
	if total == 0 || len(groups) < 2 {
		return records, 0, 0
	}

	categories := sortedKeys(categoryCount)
	labels := sortedKeys(labelCount)

	var under, over []cell
	for _, c := range categories {
		nc := float64(categoryCount[c])
		for _, y := range labels {
			members := groups[c][y]
			if len(members) == 0 {
				continue
			}
			ncy := float64(len(members))
			share := ncy / nc
			global := float64(labelCount[y]) / float64(total)

			if target := tau * global; target < 1 && share < target {
				need := int(math.Ceil((target*nc - ncy) / (1 - target)))
				if need > 0 {
					under = append(under, cell{category: c, label: y, members: members, need: need})
				}
			}
			if removalShare > 0 {
				if upper := global / tau; upper < 1 && share > upper {
					need := int(math.Ceil((ncy - upper*nc) / (1 - upper)))
					if maxDrop := len(members) - 2; need > maxDrop {
						need = maxDrop
					}
					if need > 0 {
						over = append(over, cell{category: c, label: y, members: members, need: need})
					}
				}
			}
		}
	}

	removeBudget := 0
	if len(over) > 0 {
		removeBudget = int(math.Floor(float64(budget) * removalShare))
	}
	addBudget := budget - removeBudget

	var synthetic []dataset.Record
	for i, n := range splitBudget(under, addBudget) {
		for j := 0; j < n; j++ {
			synthetic = append(synthetic, g.synthesize(schema, records, under[i].members, scale, r))
		}
	}

	drop := make(map[int]bool)
	for i, n := range splitBudget(over, removeBudget) {
		members := over[i].members
		for _, p := range r.Perm(len(members))[:n] {
			drop[members[p]] = true
		}
	}

	if len(synthetic) == 0 && len(drop) == 0 {
		return records, 0, 0
	}
	next := make([]dataset.Record, 0, len(records)-len(drop)+len(synthetic))
	for i, rec := range records {
		if !drop[i] {
			next = append(next, rec)
		}
	}
	next = append(next, synthetic...)
	return next, len(synthetic), len(drop)
}

// splitBudget shares budget across cells in proportion to need, never
// exceeding a cell's need. Leftover units go to cells in order.
func splitBudget(cells []cell, budget int) []int {
	out := make([]int, len(cells))
	if budget <= 0 || len(cells) == 0 {
		return out
	}
	totalNeed := 0
	for _, c := range cells {
		totalNeed += c.need
	}
	if totalNeed <= budget {
		for i, c := range cells {
			out[i] = c.need
		}
		return out
	}

	spent := 0
	for i, c := range cells {
		out[i] = budget * c.need / totalNeed
		spent += out[i]
	}
	for spent < budget {
		progressed := false
		for i, c := range cells {
			if spent == budget {
				break
			}
			if out[i] < c.need {
				out[i]++
				spent++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}

// synthesize creates one record from a random seed in the cell and one of its
// nearest neighbours. Protected values and the outcome always come from the seed.
func (g *Generator) synthesize(schema dataset.Schema, records []dataset.Record, members []int, scale *scaler, r *rand.Rand) dataset.Record {
	seedIdx := members[r.Intn(len(members))]
	seed := records[seedIdx]
	out := seed.Clone()
	if len(members) == 1 {
		return out
	}
	neighbor := records[g.neighbor(records, members, seedIdx, scale, r)]

	gap := r.Float64()
	for j, col := range scale.columns {
		s, n := seed[col], neighbor[col]
		if s.Null || n.Null {
			continue
		}
		v := s.Number + gap*(n.Number-s.Number)
		if scale.integral[j] {
			v = math.Round(v)
		}
		out[col] = dataset.Number(v)
	}

	for i, c := range schema.Columns {
		if c.Kind != dataset.KindCategorical || g.isReserved(c.Name) {
			continue
		}
		if r.Float64() < 0.5 {
			out[i] = neighbor[i]
		}
	}
	return out
}

func (g *Generator) isReserved(name string) bool {
	if name == g.OutcomeColumn {
		return true
	}
	for _, p := range g.Protected {
		if p == name {
			return true
		}
	}
	return false
}

// neighbor picks one of the k nearest cell members to seed by standardized
// Euclidean distance. Without numeric features any other member qualifies.
func (g *Generator) neighbor(records []dataset.Record, members []int, seedIdx int, scale *scaler, r *rand.Rand) int {
	k := g.Neighbors
	if k < 1 {
		k = 1
	}

	type candidate struct {
		index int
		dist  float64
	}
	nearest := make([]candidate, 0, k+1)
	seed := records[seedIdx]
	for _, m := range members {
		if m == seedIdx {
			continue
		}
		d := scale.distance(seed, records[m])
		pos := len(nearest)
		for pos > 0 && nearest[pos-1].dist > d {
			pos--
		}
		if pos >= k {
			continue
		}
		nearest = append(nearest, candidate{})
		copy(nearest[pos+1:], nearest[pos:])
		nearest[pos] = candidate{index: m, dist: d}
		if len(nearest) > k {
			nearest = nearest[:k]
		}
	}
	if len(nearest) == 0 {
		return members[0]
	}
	return nearest[r.Intn(len(nearest))].index
}

// check returns a description of the first violated constraint, or ""
func (g *Generator) check(view *dataset.Dataset, mods, capMods, minRecords int, baseline Profile) string {
	if mods > capMods {
		return fmt.Sprintf("modifications %d exceed ceiling %d", mods, capMods)
	}
	if view.Len() < minRecords {
		return fmt.Sprintf("record count %d below retention floor %d", view.Len(), minRecords)
	}
	rate := outcomeRate(view, g.OutcomeColumn, g.PositiveLabel)
	if drift := math.Abs(rate - baseline.OutcomeRate); drift > g.OutcomeTolerance {
		return fmt.Sprintf("outcome rate drift %.4f exceeds %.4f", drift, g.OutcomeTolerance)
	}
	if baseline.Correlation != nil {
		dev := bstats.MaxAbsDeviation(correlationOf(view, baseline.Features), baseline.Correlation)
		if dev >= g.CorrelationTolerance {
			return fmt.Sprintf("correlation drift %.4f not below %.4f", dev, g.CorrelationTolerance)
		}
	}
	return ""
}

func outcomeRate(ds *dataset.Dataset, outcomeColumn, positive string) float64 {
	n, pos := 0, 0
	for _, l := range ds.Labels(outcomeColumn) {
		if l == "" {
			continue
		}
		n++
		if l == positive {
			pos++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(pos) / float64(n)
}

func correlationOf(ds *dataset.Dataset, features []string) *mat.SymDense {
	if len(features) < 2 {
		return nil
	}
	columns := make([][]float64, len(features))
	for i, f := range features {
		columns[i] = ds.Numbers(f)
	}
	return bstats.CorrelationMatrix(columns)
}

// scaler standardizes numeric auxiliary features for neighbour search
type scaler struct {
	columns  []int
	std      []float64
	integral []bool
}

func newScaler(ds *dataset.Dataset, features []string) *scaler {
	s := &scaler{}
	for _, f := range features {
		idx := ds.Schema.Index(f)
		if idx < 0 {
			continue
		}
		var values []float64
		integral := true
		for _, v := range ds.Numbers(f) {
			if math.IsNaN(v) {
				continue
			}
			values = append(values, v)
			if v != math.Trunc(v) {
				integral = false
			}
		}
		sd, err := stats.StandardDeviation(values)
		if err != nil || sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		s.columns = append(s.columns, idx)
		s.std = append(s.std, sd)
		s.integral = append(s.integral, integral)
	}
	return s
}

func (s *scaler) distance(a, b dataset.Record) float64 {
	sum := 0.0
	for j, col := range s.columns {
		if a[col].Null || b[col].Null {
			continue
		}
		d := (a[col].Number - b[col].Number) / s.std[j]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

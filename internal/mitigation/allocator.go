package mitigation

import (
	"math"
	"sort"

	"biasclean/domain/fairness"
)

// PlanItem is the allocator's work order for one attribute
type PlanItem struct {
	Attribute string
	Weight    float64
	// Budget is the maximum number of records this attribute may add or remove
	Budget int
	// Threshold is the target ratio of a cell's in-category share to its global share
	Threshold float64
}

// Plan is the ordered per-iteration work plan
type Plan struct {
	Items []PlanItem
	// Ceiling is the global modification cap for the iteration
	Ceiling int
}

// Attributes returns the planned attribute names in order
func (p Plan) Attributes() []string {
	names := make([]string, len(p.Items))
	for i, item := range p.Items {
		names[i] = item.Attribute
	}
	return names
}

// ThresholdFloor is the threshold an attribute gets as its weight approaches zero
const ThresholdFloor = 0.9

// Allocator turns scores into a weight-ordered plan
type Allocator struct {
	Ceiling float64
	// Floor overrides ThresholdFloor when positive
	Floor float64
}

func (a Allocator) floor() float64 {
	if a.Floor > 0 && a.Floor <= 1 {
		return a.Floor
	}
	return ThresholdFloor
}

// Allocate plans every active attribute. Budgets are proportional to weight
// so their sum never exceeds the ceiling; thresholds rise linearly from the
// floor towards 1 as weight approaches the largest planned weight.
func (a Allocator) Allocate(scores []fairness.DisparityScore, recordCount int) Plan {
	plan := Plan{Ceiling: int(math.Floor(a.Ceiling * float64(recordCount)))}

	var active []fairness.DisparityScore
	total, maxWeight := 0.0, 0.0
	for _, s := range scores {
		if !s.Active() {
			continue
		}
		active = append(active, s)
		total += s.Weight
		maxWeight = math.Max(maxWeight, s.Weight)
	}
	if len(active) == 0 {
		return plan
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Weight != active[j].Weight {
			return active[i].Weight > active[j].Weight
		}
		return active[i].Attribute < active[j].Attribute
	})

	floor := a.floor()
	for _, s := range active {
		share := s.Weight / total
		plan.Items = append(plan.Items, PlanItem{
			Attribute: s.Attribute,
			Weight:    s.Weight,
			Budget:    int(math.Floor(a.Ceiling * float64(recordCount) * share)),
			Threshold: floor + (1-floor)*s.Weight/maxWeight,
		})
	}
	return plan
}

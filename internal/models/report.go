package models

import "time"

// Criterion names, in the order they are evaluated and reported.
const (
	CriterionMintAuthority   = "mint_authority_revoked"
	CriterionFreezeAuthority = "freeze_authority_revoked"
	CriterionLPLocked        = "lp_burned_or_locked"
	CriterionTransferTax     = "transfer_tax"
	CriterionTopHolders      = "top_holders"
	CriterionCanSell         = "can_sell"
)

// CriteriaOrder is the fixed eligibility checklist.
var CriteriaOrder = []string{
	CriterionMintAuthority,
	CriterionFreezeAuthority,
	CriterionLPLocked,
	CriterionTransferTax,
	CriterionTopHolders,
	CriterionCanSell,
}

// Criterion is one checklist entry with its measured value.
type Criterion struct {
	Name   string
	Passed bool
	Value  float64 // fraction for numeric criteria, 1/0 for boolean ones
	Detail string
}

// EligibilityReport is built fresh for every evaluation and never mutated afterwards.
type EligibilityReport struct {
	Address     string
	Criteria    []Criterion
	EvaluatedAt time.Time
}

// Eligible is the AND of every criterion. A report missing any checklist entry is not eligible.
func (r EligibilityReport) Eligible() bool {
	if len(r.Criteria) != len(CriteriaOrder) {
		return false
	}
	for _, c := range r.Criteria {
		if !c.Passed {
			return false
		}
	}
	return true
}

func (r EligibilityReport) PassedCount() int {
	n := 0
	for _, c := range r.Criteria {
		if c.Passed {
			n++
		}
	}
	return n
}

// Failed returns the names of failing criteria in checklist order.
func (r EligibilityReport) Failed() []string {
	var out []string
	for _, c := range r.Criteria {
		if !c.Passed {
			out = append(out, c.Name)
		}
	}
	return out
}

// Criterion looks a criterion up by name.
func (r EligibilityReport) Criterion(name string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.Name == name {
			return c, true
		}
	}
	return Criterion{}, false
}

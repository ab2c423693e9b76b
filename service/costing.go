// Package service implements the SOQ and tendering engine: the catalog of
// estimated work, pure cost aggregation, and the tender/bid/award state
// machines. Persistence and attachment storage are external collaborators.
package service

import (
	"github.com/structiq/soqtender/model"
)

// The aggregation functions below are pure: they never mutate their inputs
// and never fail. A missing baseline surfaces as NoBaseline, not an error.

// JobTotal derives a job's estimated total from its lines
func JobTotal(job *model.Job) model.Money {
	var total model.Money
	for _, m := range job.Materials {
		total += m.EstimatedCost()
	}
	for _, l := range job.Labor {
		total += l.EstimatedCost()
	}
	return total
}

// JobActualTotal derives a job's actual total. Lines without a recorded
// actual contribute their estimate, so the total reflects known deviations
// only. hasActuals is false when no line carries an actual value.
func JobActualTotal(job *model.Job) (total model.Money, hasActuals bool) {
	for _, m := range job.Materials {
		if m.ActualCost != nil {
			total += *m.ActualCost
			hasActuals = true
		} else {
			total += m.EstimatedCost()
		}
	}
	for _, l := range job.Labor {
		if l.ActualCost != nil {
			total += *l.ActualCost
			hasActuals = true
		} else {
			total += l.EstimatedCost()
		}
	}
	return total, hasActuals
}

// CategoryTotal sums job totals
func CategoryTotal(jobs []*model.Job) model.Money {
	var total model.Money
	for _, j := range jobs {
		total += JobTotal(j)
	}
	return total
}

// GrandTotal sums category totals
func GrandTotal(categories [][]*model.Job) model.Money {
	var total model.Money
	for _, jobs := range categories {
		total += CategoryTotal(jobs)
	}
	return total
}

// CategoryReport is the per-category rollup of a cost report
type CategoryReport struct {
	CategoryID string      `json:"category_id"`
	Name       string      `json:"name"`
	Estimated  model.Money `json:"estimated"`
	Actual     model.Money `json:"actual"`
	// Variance is nil when the category has no baseline
	Variance   *float64 `json:"variance,omitempty"`
	NoBaseline bool     `json:"no_baseline,omitempty"`
}

// CostReport is the estimate rollup across all categories
type CostReport struct {
	Categories     []CategoryReport `json:"categories"`
	GrandEstimated model.Money      `json:"grand_estimated"`
	GrandActual    model.Money      `json:"grand_actual"`
	Variance       *float64         `json:"variance,omitempty"`
	NoBaseline     bool             `json:"no_baseline,omitempty"`
}

// BuildCostReport rolls up estimated and actual totals per category plus a
// grand total with variance
func BuildCostReport(categories []*model.Category, jobs map[string]*model.Job) CostReport {
	report := CostReport{Categories: make([]CategoryReport, 0, len(categories))}

	for _, cat := range categories {
		cr := CategoryReport{CategoryID: cat.ID, Name: cat.Name}
		for _, jobID := range cat.JobIDs {
			job, ok := jobs[jobID]
			if !ok {
				continue
			}
			cr.Estimated += JobTotal(job)
			actual, _ := JobActualTotal(job)
			cr.Actual += actual
		}
		if ratio, ok := model.Variance(cr.Estimated, cr.Actual); ok {
			cr.Variance = &ratio
		} else {
			cr.NoBaseline = true
		}
		report.GrandEstimated += cr.Estimated
		report.GrandActual += cr.Actual
		report.Categories = append(report.Categories, cr)
	}

	if ratio, ok := model.Variance(report.GrandEstimated, report.GrandActual); ok {
		report.Variance = &ratio
	} else {
		report.NoBaseline = true
	}
	return report
}

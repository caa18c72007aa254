package billing

import (
	"sort"
	"time"

	"peakone-billing-backend/models"

	"github.com/google/uuid"
)

// Project categories with free-credit rules.
const (
	CategoryLandingPage = "LANDING_PAGE"
	CategoryMultiForm   = "MULTI_FORM"
	CategoryBasicForm   = "BASIC_FORM"
)

// ProjectPolicy sets how many projects of each category go free per period.
type ProjectPolicy struct {
	FreeLandingPages int
	FreeMultiForms   int
	FreeBasicForms   int
}

// DefaultProjectPolicy grants one free landing page, one free multi-form,
// and two free basic forms per period.
func DefaultProjectPolicy() ProjectPolicy {
	return ProjectPolicy{
		FreeLandingPages: 1,
		FreeMultiForms:   1,
		FreeBasicForms:   2,
	}
}

// ProjectCharge is one project's priced line. OriginalAmount preserves the
// list price when a free credit zeroes the billed amount.
type ProjectCharge struct {
	ProjectID      uuid.UUID `json:"projectId"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	CompletionDate time.Time `json:"completionDate"`

	OriginalAmount float64 `json:"originalAmount"`
	Amount         float64 `json:"amount"`
	IsFreeCredit   bool    `json:"isFreeCredit"`
}

// ProjectTotals aggregates a set of project charges.
type ProjectTotals struct {
	GrossRevenue       float64 `json:"grossRevenue"`
	Revenue            float64 `json:"revenue"`
	LandingPageSavings float64 `json:"landingPageSavings"`
	MultiFormSavings   float64 `json:"multiFormSavings"`
	BasicFormSavings   float64 `json:"basicFormSavings"`
}

// PriceProjects prices completed projects for one period. Each category's
// free-credit budget is consumed in chronological completion order, first
// eligible project wins.
func PriceProjects(projects []models.Project, policy ProjectPolicy) ([]ProjectCharge, ProjectTotals) {
	ordered := make([]models.Project, len(projects))
	copy(ordered, projects)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].CompletionDate.Before(ordered[b].CompletionDate)
	})

	budget := map[string]int{
		CategoryLandingPage: policy.FreeLandingPages,
		CategoryMultiForm:   policy.FreeMultiForms,
		CategoryBasicForm:   policy.FreeBasicForms,
	}

	charges := make([]ProjectCharge, 0, len(ordered))
	totals := ProjectTotals{}

	for _, proj := range ordered {
		charge := ProjectCharge{
			ProjectID:      proj.ID,
			Name:           proj.Name,
			Category:       proj.Category,
			CompletionDate: DateOf(proj.CompletionDate),
			OriginalAmount: Round2(proj.Amount),
			Amount:         Round2(proj.Amount),
		}

		if remaining, eligible := budget[proj.Category]; eligible && remaining > 0 && charge.OriginalAmount > 0 {
			budget[proj.Category]--
			charge.IsFreeCredit = true
			charge.Amount = 0
			switch proj.Category {
			case CategoryLandingPage:
				totals.LandingPageSavings += charge.OriginalAmount
			case CategoryMultiForm:
				totals.MultiFormSavings += charge.OriginalAmount
			case CategoryBasicForm:
				totals.BasicFormSavings += charge.OriginalAmount
			}
		}

		totals.GrossRevenue += charge.OriginalAmount
		totals.Revenue += charge.Amount
		charges = append(charges, charge)
	}

	totals.GrossRevenue = Round2(totals.GrossRevenue)
	totals.Revenue = Round2(totals.Revenue)
	totals.LandingPageSavings = Round2(totals.LandingPageSavings)
	totals.MultiFormSavings = Round2(totals.MultiFormSavings)
	totals.BasicFormSavings = Round2(totals.BasicFormSavings)
	return charges, totals
}

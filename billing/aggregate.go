package billing

import (
	"time"

	"peakone-billing-backend/models"

	"go.uber.org/zap"
)

// Policy bundles every configurable pricing input so callers pass selection
// state explicitly instead of reading it from globals.
type Policy struct {
	Support SupportPolicy
	Project ProjectPolicy
}

func DefaultPolicy() Policy {
	return Policy{
		Support: DefaultSupportPolicy(),
		Project: DefaultProjectPolicy(),
	}
}

// MonthlyBillingSummary merges the three revenue streams for one calendar
// month. Invariants: TotalRevenue equals the sum of the three stream nets,
// and each stream's net equals its gross minus its savings.
type MonthlyBillingSummary struct {
	Month string `json:"month"`

	Tickets        []TicketCharge  `json:"tickets"`
	Projects       []ProjectCharge `json:"projects"`
	HostingCharges []HostingCharge `json:"hostingCharges"`

	TicketsGrossRevenue     float64 `json:"ticketsGrossRevenue"`
	TicketsRevenue          float64 `json:"ticketsRevenue"`
	TicketsFreeHoursApplied float64 `json:"ticketsFreeHoursApplied"`
	TicketsFreeHoursSavings float64 `json:"ticketsFreeHoursSavings"`

	ProjectsGrossRevenue       float64 `json:"projectsGrossRevenue"`
	ProjectsRevenue            float64 `json:"projectsRevenue"`
	ProjectsLandingPageSavings float64 `json:"projectsLandingPageSavings"`
	ProjectsMultiFormSavings   float64 `json:"projectsMultiFormSavings"`
	ProjectsBasicFormSavings   float64 `json:"projectsBasicFormSavings"`

	HostingGrossRevenue     float64 `json:"hostingGrossRevenue"`
	HostingRevenue          float64 `json:"hostingRevenue"`
	HostingCreditsAvailable int     `json:"hostingCreditsAvailable"`
	HostingCreditsApplied   int     `json:"hostingCreditsApplied"`
	HostingCreditSavings    float64 `json:"hostingCreditSavings"`

	TotalRevenue float64 `json:"totalRevenue"`
}

// BillingSummary sums monthly summaries over a selected period. HostingMRR is
// the latest month's net MRR, not a sum: hosting is a recurring-revenue
// figure, and callers must not conflate it with a period total.
type BillingSummary struct {
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`

	Months []MonthlyBillingSummary `json:"months"`

	TicketsRevenue          float64 `json:"ticketsRevenue"`
	ProjectsRevenue         float64 `json:"projectsRevenue"`
	HostingMRR              float64 `json:"hostingMrr"`
	TotalRevenue            float64 `json:"totalRevenue"`
	TicketsFreeHoursSavings float64 `json:"ticketsFreeHoursSavings"`
	ProjectCreditSavings    float64 `json:"projectCreditSavings"`
	HostingCreditSavings    float64 `json:"hostingCreditSavings"`
}

// Aggregator groups raw records by calendar month and runs the per-stream
// calculators. It is stateless per call: the same records and period always
// produce the same summary.
type Aggregator struct {
	policy Policy
	log    *zap.Logger
}

func NewAggregator(policy Policy, log *zap.Logger) Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return Aggregator{policy: policy, log: log.Named("billing.aggregator")}
}

// MonthSummary prices one calendar month. Records outside the month are
// ignored; malformed records are skipped and logged so one bad ticket never
// blocks billing the rest.
func (a Aggregator) MonthSummary(
	month time.Time,
	requests []models.ActivityRequest,
	projects []models.Project,
	properties []models.HostingProperty,
) MonthlyBillingSummary {
	key := MonthKey(month)

	monthRequests := make([]models.ActivityRequest, 0, len(requests))
	for _, req := range requests {
		if MonthKey(req.Date) != key {
			continue
		}
		if !a.validRequest(req) {
			continue
		}
		monthRequests = append(monthRequests, req)
	}

	monthProjects := make([]models.Project, 0, len(projects))
	for _, proj := range projects {
		if MonthKey(proj.CompletionDate) != key {
			continue
		}
		if !a.validProject(proj) {
			continue
		}
		monthProjects = append(monthProjects, proj)
	}

	validProperties := make([]models.HostingProperty, 0, len(properties))
	for _, prop := range properties {
		if !a.validProperty(prop) {
			continue
		}
		validProperties = append(validProperties, prop)
	}

	tickets, ticketTotals := PriceSupportTickets(monthRequests, a.policy.Support)
	projectCharges, projectTotals := PriceProjects(monthProjects, a.policy.Project)

	hostingCharges := PriceHostingMonth(validProperties, month)
	pool := HostingCreditPool(len(hostingCharges), month)
	applied := AllocateHostingCredits(hostingCharges, pool)

	summary := MonthlyBillingSummary{
		Month:          key,
		Tickets:        tickets,
		Projects:       projectCharges,
		HostingCharges: hostingCharges,

		TicketsGrossRevenue:     ticketTotals.GrossRevenue,
		TicketsRevenue:          ticketTotals.Revenue,
		TicketsFreeHoursApplied: ticketTotals.FreeHoursApplied,
		TicketsFreeHoursSavings: ticketTotals.FreeHoursSavings,

		ProjectsGrossRevenue:       projectTotals.GrossRevenue,
		ProjectsRevenue:            projectTotals.Revenue,
		ProjectsLandingPageSavings: projectTotals.LandingPageSavings,
		ProjectsMultiFormSavings:   projectTotals.MultiFormSavings,
		ProjectsBasicFormSavings:   projectTotals.BasicFormSavings,

		HostingGrossRevenue:     GrossMRR(hostingCharges),
		HostingRevenue:          NetMRR(hostingCharges),
		HostingCreditsAvailable: pool,
		HostingCreditsApplied:   applied,
		HostingCreditSavings:    HostingCreditSavings(hostingCharges),
	}
	summary.TotalRevenue = Round2(summary.TicketsRevenue + summary.ProjectsRevenue + summary.HostingRevenue)
	return summary
}

// RangeSummary prices every month the period touches and rolls them up.
func (a Aggregator) RangeSummary(
	period Period,
	requests []models.ActivityRequest,
	projects []models.Project,
	properties []models.HostingProperty,
) (BillingSummary, error) {
	if period.End.Before(period.Start) {
		return BillingSummary{}, ErrInvalidPeriod
	}

	summary := BillingSummary{
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
	}
	for _, month := range period.Months() {
		monthly := a.MonthSummary(month, requests, projects, properties)
		summary.Months = append(summary.Months, monthly)

		summary.TicketsRevenue += monthly.TicketsRevenue
		summary.ProjectsRevenue += monthly.ProjectsRevenue
		summary.TicketsFreeHoursSavings += monthly.TicketsFreeHoursSavings
		summary.ProjectCreditSavings += monthly.ProjectsLandingPageSavings +
			monthly.ProjectsMultiFormSavings + monthly.ProjectsBasicFormSavings
		summary.HostingCreditSavings += monthly.HostingCreditSavings

		// Recurring revenue: the latest month wins, totals do not accumulate.
		summary.HostingMRR = monthly.HostingRevenue
	}

	summary.TicketsRevenue = Round2(summary.TicketsRevenue)
	summary.ProjectsRevenue = Round2(summary.ProjectsRevenue)
	summary.TicketsFreeHoursSavings = Round2(summary.TicketsFreeHoursSavings)
	summary.ProjectCreditSavings = Round2(summary.ProjectCreditSavings)
	summary.HostingCreditSavings = Round2(summary.HostingCreditSavings)
	summary.TotalRevenue = Round2(summary.TicketsRevenue + summary.ProjectsRevenue + summary.HostingMRR)
	return summary, nil
}

// DaySummary prices a single day's slice of its month. Each stream's detail
// list is filtered by exact date (tickets, projects) or active-range
// membership (hosting) and every derived total is recomputed from the
// filtered subset rather than prorated from the month.
func (a Aggregator) DaySummary(
	day time.Time,
	requests []models.ActivityRequest,
	projects []models.Project,
	properties []models.HostingProperty,
) MonthlyBillingSummary {
	date := DateOf(day)

	dayRequests := make([]models.ActivityRequest, 0)
	for _, req := range requests {
		if DateOf(req.Date).Equal(date) {
			dayRequests = append(dayRequests, req)
		}
	}

	dayProjects := make([]models.Project, 0)
	for _, proj := range projects {
		if DateOf(proj.CompletionDate).Equal(date) {
			dayProjects = append(dayProjects, proj)
		}
	}

	dayProperties := make([]models.HostingProperty, 0)
	for _, prop := range properties {
		if hostingActiveOn(prop, date) {
			dayProperties = append(dayProperties, prop)
		}
	}

	return a.MonthSummary(date, dayRequests, dayProjects, dayProperties)
}

func hostingActiveOn(prop models.HostingProperty, day time.Time) bool {
	if prop.HostingStart == nil || DateOf(*prop.HostingStart).After(day) {
		return false
	}
	if prop.HostingEnd != nil && DateOf(*prop.HostingEnd).Before(day) {
		return false
	}
	return true
}

func (a Aggregator) validRequest(req models.ActivityRequest) bool {
	if req.EstimatedHours < 0 {
		a.log.Warn("skipping ticket with negative hours",
			zap.String("request_id", req.ID.String()),
			zap.Float64("hours", req.EstimatedHours))
		return false
	}
	if Billable(req) {
		if _, ok := a.policy.Support.Rates[req.Urgency]; !ok {
			a.log.Warn("skipping ticket with unknown urgency",
				zap.String("request_id", req.ID.String()),
				zap.String("urgency", req.Urgency))
			return false
		}
	}
	return true
}

func (a Aggregator) validProject(proj models.Project) bool {
	if proj.Amount < 0 {
		a.log.Warn("skipping project with negative amount",
			zap.String("project_id", proj.ID.String()),
			zap.Float64("amount", proj.Amount))
		return false
	}
	return true
}

func (a Aggregator) validProperty(prop models.HostingProperty) bool {
	if prop.MonthlyFee < 0 {
		a.log.Warn("skipping property with negative fee",
			zap.String("property_id", prop.ID.String()),
			zap.Float64("fee", prop.MonthlyFee))
		return false
	}
	if prop.HostingStart != nil && prop.HostingEnd != nil && prop.HostingEnd.Before(*prop.HostingStart) {
		a.log.Warn("skipping property with end before start",
			zap.String("property_id", prop.ID.String()))
		return false
	}
	return true
}

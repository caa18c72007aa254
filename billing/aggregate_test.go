package billing

import (
	"testing"

	"peakone-billing-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAggregator() Aggregator {
	return NewAggregator(DefaultPolicy(), nil)
}

func TestMonthSummaryReconciles(t *testing.T) {
	agg := testAggregator()

	requests := []models.ActivityRequest{
		makeRequest(date(2025, 6, 5), UrgencyHigh, 3),
		makeRequest(date(2025, 6, 12), UrgencyLow, 2),
		// Outside the month, must be ignored.
		makeRequest(date(2025, 5, 30), UrgencyHigh, 4),
	}
	projects := []models.Project{
		makeProject("landing", CategoryLandingPage, date(2025, 6, 10), 1200),
		makeProject("build", "CUSTOM_BUILD", date(2025, 6, 15), 2000),
	}
	properties := []models.HostingProperty{
		{ID: uuid.New(), Name: "a.com", HostingStart: datePtr(2024, 1, 1), MonthlyFee: 100},
		{ID: uuid.New(), Name: "b.com", HostingStart: datePtr(2025, 6, 15), MonthlyFee: 100},
	}

	summary := agg.MonthSummary(date(2025, 6, 1), requests, projects, properties)

	assert.Equal(t, "2025-06", summary.Month)
	assert.Len(t, summary.Tickets, 2)
	assert.Len(t, summary.Projects, 2)
	assert.Len(t, summary.HostingCharges, 2)

	// Stream nets reconcile: net = gross - savings.
	assert.InDelta(t, summary.TicketsGrossRevenue-summary.TicketsFreeHoursSavings, summary.TicketsRevenue, 0.005)
	projectSavings := summary.ProjectsLandingPageSavings + summary.ProjectsMultiFormSavings + summary.ProjectsBasicFormSavings
	assert.InDelta(t, summary.ProjectsGrossRevenue-projectSavings, summary.ProjectsRevenue, 0.005)
	assert.InDelta(t, summary.HostingGrossRevenue-summary.HostingCreditSavings, summary.HostingRevenue, 0.005)

	// Total is the sum of the three stream nets.
	assert.InDelta(t, summary.TicketsRevenue+summary.ProjectsRevenue+summary.HostingRevenue, summary.TotalRevenue, 0.005)

	// Two sites earn no free hosting credit.
	assert.Equal(t, 0, summary.HostingCreditsAvailable)
	assert.Equal(t, 0, summary.HostingCreditsApplied)
}

func TestMonthSummaryHostingCredits(t *testing.T) {
	agg := testAggregator()

	properties := make([]models.HostingProperty, 0, 25)
	for i := 0; i < 25; i++ {
		properties = append(properties, models.HostingProperty{
			ID:           uuid.New(),
			Name:         "site",
			HostingStart: datePtr(2024, 1, 1),
			MonthlyFee:   50,
		})
	}

	summary := agg.MonthSummary(date(2025, 6, 1), nil, nil, properties)

	assert.Equal(t, 1, summary.HostingCreditsAvailable)
	assert.Equal(t, 1, summary.HostingCreditsApplied)
	assert.Equal(t, 1250.0, summary.HostingGrossRevenue)
	assert.Equal(t, 1200.0, summary.HostingRevenue)
	assert.Equal(t, 50.0, summary.HostingCreditSavings)
}

func TestMonthSummarySkipsMalformedRecords(t *testing.T) {
	agg := testAggregator()

	badHours := makeRequest(date(2025, 6, 1), UrgencyHigh, -2)
	badUrgency := makeRequest(date(2025, 6, 2), "SEVERE", 1)
	good := makeRequest(date(2025, 6, 3), UrgencyLow, 1)

	badProject := makeProject("bad", CategoryBasicForm, date(2025, 6, 4), -100)
	badProperty := models.HostingProperty{
		ID:           uuid.New(),
		Name:         "backwards.com",
		HostingStart: datePtr(2025, 6, 20),
		HostingEnd:   datePtr(2025, 6, 10),
		MonthlyFee:   100,
	}

	summary := agg.MonthSummary(date(2025, 6, 1),
		[]models.ActivityRequest{badHours, badUrgency, good},
		[]models.Project{badProject},
		[]models.HostingProperty{badProperty})

	assert.Len(t, summary.Tickets, 1)
	assert.Empty(t, summary.Projects)
	assert.Empty(t, summary.HostingCharges)
}

func TestRangeSummaryHostingMRRIsLatestMonth(t *testing.T) {
	agg := testAggregator()

	// Site ends June 15, so June nets half a month and July nets zero.
	properties := []models.HostingProperty{{
		ID:           uuid.New(),
		Name:         "a.com",
		HostingStart: datePtr(2024, 1, 1),
		HostingEnd:   datePtr(2025, 6, 15),
		MonthlyFee:   100,
	}}

	period, err := NewPeriod(date(2025, 5, 1), date(2025, 7, 31))
	require.NoError(t, err)

	summary, err := agg.RangeSummary(period, nil, nil, properties)
	require.NoError(t, err)
	require.Len(t, summary.Months, 3)

	assert.Equal(t, 100.0, summary.Months[0].HostingRevenue)
	assert.Equal(t, 50.0, summary.Months[1].HostingRevenue)
	assert.Equal(t, 0.0, summary.Months[2].HostingRevenue)

	// MRR reports the latest month, not the period sum.
	assert.Equal(t, 0.0, summary.HostingMRR)
	assert.Equal(t, summary.TicketsRevenue+summary.ProjectsRevenue+summary.HostingMRR, summary.TotalRevenue)
}

func TestRangeSummaryFreeHoursResetMonthly(t *testing.T) {
	agg := testAggregator()

	requests := []models.ActivityRequest{
		makeRequest(date(2025, 5, 10), UrgencyHigh, 2),
		makeRequest(date(2025, 6, 10), UrgencyHigh, 2),
	}

	period, err := NewPeriod(date(2025, 5, 1), date(2025, 6, 30))
	require.NoError(t, err)

	summary, err := agg.RangeSummary(period, requests, nil, nil)
	require.NoError(t, err)
	require.Len(t, summary.Months, 2)

	// Each month grants its own 2-hour allowance; both tickets go free.
	assert.Equal(t, 0.0, summary.Months[0].TicketsRevenue)
	assert.Equal(t, 0.0, summary.Months[1].TicketsRevenue)
	assert.Equal(t, 1000.0, summary.TicketsFreeHoursSavings)
}

func TestDaySummaryFilters(t *testing.T) {
	agg := testAggregator()

	requests := []models.ActivityRequest{
		makeRequest(date(2025, 6, 10), UrgencyHigh, 1),
		makeRequest(date(2025, 6, 11), UrgencyHigh, 1),
	}
	projects := []models.Project{
		makeProject("same-day", CategoryBasicForm, date(2025, 6, 10), 300),
		makeProject("other-day", CategoryBasicForm, date(2025, 6, 12), 300),
	}
	properties := []models.HostingProperty{
		{ID: uuid.New(), Name: "active.com", HostingStart: datePtr(2024, 1, 1), MonthlyFee: 100},
		{ID: uuid.New(), Name: "ended.com", HostingStart: datePtr(2024, 1, 1), HostingEnd: datePtr(2025, 6, 5), MonthlyFee: 100},
	}

	summary := agg.DaySummary(date(2025, 6, 10), requests, projects, properties)

	require.Len(t, summary.Tickets, 1)
	assert.Equal(t, date(2025, 6, 10), summary.Tickets[0].Date)

	require.Len(t, summary.Projects, 1)
	assert.Equal(t, "same-day", summary.Projects[0].Name)

	// Only the property active on the day is included, but its charge is
	// still priced across the containing month.
	require.Len(t, summary.HostingCharges, 1)
	assert.Equal(t, "active.com", summary.HostingCharges[0].PropertyName)
}

func TestRangeSummaryInvalidPeriod(t *testing.T) {
	agg := testAggregator()
	_, err := agg.RangeSummary(Period{Start: date(2025, 6, 30), End: date(2025, 6, 1)}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 53.33, Round2(53.333333))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 100.0, Round2(100))
	assert.Equal(t, -2.5, Round2(-2.499999))
}

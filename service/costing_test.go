package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/structiq/soqtender/model"
)

func testJob(id string) *model.Job {
	return &model.Job{
		ID: id,
		Materials: []*model.Material{
			{ID: id + "-m1", Unit: model.UnitVolume, EstimatedQuantity: 100_000, UnitRate: 15_000},
		},
		Labor: []*model.Labor{
			{ID: id + "-l1", EstimatedStaff: 5, EstimatedHours: 40_000, HourlyRate: 2_500},
		},
	}
}

func TestJobTotal(t *testing.T) {
	job := testJob("j1")
	require.Equal(t, model.Money(2_000_000), JobTotal(job))

	require.Equal(t, model.Money(0), JobTotal(&model.Job{}))
}

func TestJobActualTotal(t *testing.T) {
	job := testJob("j1")

	// no actuals recorded yet
	total, has := JobActualTotal(job)
	require.False(t, has)
	require.Equal(t, model.Money(2_000_000), total)

	// a single actual mixes with the remaining estimates
	actual := model.Money(1_700_000)
	job.Materials[0].ActualCost = &actual
	total, has = JobActualTotal(job)
	require.True(t, has)
	require.Equal(t, model.Money(2_200_000), total)
}

func TestCategoryAndGrandTotal(t *testing.T) {
	jobs := []*model.Job{testJob("j1"), testJob("j2")}
	require.Equal(t, model.Money(4_000_000), CategoryTotal(jobs))

	require.Equal(t, model.Money(6_000_000), GrandTotal([][]*model.Job{
		jobs,
		{testJob("j3")},
	}))
}

func TestBuildCostReport(t *testing.T) {
	j1 := testJob("j1")
	j2 := testJob("j2")
	actual := model.Money(1_620_000)
	j1.Materials[0].ActualCost = &actual

	categories := []*model.Category{
		{ID: "c1", Name: "Foundation", JobIDs: []string{"j1"}},
		{ID: "c2", Name: "Structure", JobIDs: []string{"j2"}},
	}
	jobs := map[string]*model.Job{"j1": j1, "j2": j2}

	report := BuildCostReport(categories, jobs)
	require.Len(t, report.Categories, 2)

	foundation := report.Categories[0]
	require.Equal(t, model.Money(2_000_000), foundation.Estimated)
	require.Equal(t, model.Money(2_120_000), foundation.Actual)
	require.NotNil(t, foundation.Variance)
	require.InDelta(t, 0.06, *foundation.Variance, 1e-9)

	require.Equal(t, model.Money(4_000_000), report.GrandEstimated)
	require.Equal(t, model.Money(4_120_000), report.GrandActual)
	require.NotNil(t, report.Variance)
	require.InDelta(t, 0.03, *report.Variance, 1e-9)
}

func TestJobRoundTripPreservesTotals(t *testing.T) {
	job := testJob("j1")

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var decoded model.Job
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, JobTotal(job), JobTotal(&decoded))
}

func TestBuildCostReportNoBaseline(t *testing.T) {
	categories := []*model.Category{{ID: "c1", Name: "Empty"}}

	report := BuildCostReport(categories, map[string]*model.Job{})
	require.True(t, report.Categories[0].NoBaseline)
	require.Nil(t, report.Categories[0].Variance)
	require.True(t, report.NoBaseline)
	require.Nil(t, report.Variance)
}

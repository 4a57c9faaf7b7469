package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	U "journeylens/util"
)

func metricShiftDefinition(t *testing.T, scope AlertScope) *AlertDefinition {
	definition := &AlertDefinition{
		ProjectID: 1,
		Name:      "watch",
		Domain:    ALERT_DOMAIN_JOURNEYS,
		Type:      ALERT_TYPE_METRIC_SHIFT,
		Metric:    ALERT_METRIC_CONVERSION_RATE,
	}
	scopeJson, err := U.EncodeStructTypeToPostgresJsonb(scope)
	assert.Nil(t, err)
	definition.Scope = scopeJson

	conditionJson, err := U.EncodeStructTypeToPostgresJsonb(AlertCondition{
		ComparisonMode: PREVIOUS_PERIOD,
		WindowDays:     7,
		ThresholdPct:   -20,
	})
	assert.Nil(t, err)
	definition.Condition = conditionJson
	return definition
}

func TestResolveAlertWindows(t *testing.T) {
	asOf := time.Date(2026, time.August, 21, 14, 30, 0, 0, time.UTC)

	// Trailing 7 days ending on the evaluation day, baseline the 7
	// days before that.
	windows := ResolveAlertWindows(asOf, 7)
	assert.Equal(t, uint64(20260815), windows.CurrentFrom)
	assert.Equal(t, uint64(20260821), windows.CurrentTo)
	assert.Equal(t, uint64(20260808), windows.BaselineFrom)
	assert.Equal(t, uint64(20260814), windows.BaselineTo)

	// A one day window compares yesterday against the day before.
	windows = ResolveAlertWindows(asOf, 1)
	assert.Equal(t, uint64(20260821), windows.CurrentFrom)
	assert.Equal(t, uint64(20260821), windows.CurrentTo)
	assert.Equal(t, uint64(20260820), windows.BaselineFrom)
	assert.Equal(t, uint64(20260820), windows.BaselineTo)

	// Windows cross month boundaries on calendar days.
	windows = ResolveAlertWindows(time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, uint64(20260831), windows.CurrentFrom)
	assert.Equal(t, uint64(20260902), windows.CurrentTo)
	assert.Equal(t, uint64(20260828), windows.BaselineFrom)
	assert.Equal(t, uint64(20260830), windows.BaselineTo)

	// Evaluation times are normalized to UTC before picking the day.
	ist := time.FixedZone("IST", 5*3600+1800)
	windows = ResolveAlertWindows(time.Date(2026, time.August, 21, 2, 0, 0, 0, ist), 1)
	assert.Equal(t, uint64(20260820), windows.CurrentTo)
}

func TestComputeDeltaPct(t *testing.T) {
	delta, ok := ComputeDeltaPct(0.1, 0.2)
	assert.True(t, ok)
	assert.Equal(t, -50.0, delta)

	delta, ok = ComputeDeltaPct(150.0, 100.0)
	assert.True(t, ok)
	assert.Equal(t, 50.0, delta)

	delta, ok = ComputeDeltaPct(100.0, 100.0)
	assert.True(t, ok)
	assert.Equal(t, 0.0, delta)

	delta, ok = ComputeDeltaPct(0.0, 4.0)
	assert.True(t, ok)
	assert.Equal(t, -100.0, delta)

	// A zero baseline has no meaningful percentage change.
	_, ok = ComputeDeltaPct(5.0, 0.0)
	assert.False(t, ok)
}

func TestShouldFireAlert(t *testing.T) {
	// Negative thresholds watch for drops, boundary inclusive.
	assert.True(t, ShouldFireAlert(-20.0, -20.0))
	assert.True(t, ShouldFireAlert(-25.0, -20.0))
	assert.False(t, ShouldFireAlert(-19.9, -20.0))
	assert.False(t, ShouldFireAlert(30.0, -20.0))

	// Positive thresholds watch for spikes.
	assert.True(t, ShouldFireAlert(15.0, 15.0))
	assert.True(t, ShouldFireAlert(42.0, 15.0))
	assert.False(t, ShouldFireAlert(14.9, 15.0))
	assert.False(t, ShouldFireAlert(-40.0, 15.0))
}

func TestComputeJourneyMetric(t *testing.T) {
	rows := []PathDaily{
		{CountJourneys: 30, CountConversions: 3},
		{CountJourneys: 20, CountConversions: 2},
	}

	count, err := ComputeJourneyMetric(ALERT_METRIC_COUNT_JOURNEYS, rows)
	assert.Nil(t, err)
	assert.Equal(t, 50.0, count)

	rate, err := ComputeJourneyMetric(ALERT_METRIC_CONVERSION_RATE, rows)
	assert.Nil(t, err)
	assert.Equal(t, 0.1, rate)

	// No rows means zero, not an error.
	count, err = ComputeJourneyMetric(ALERT_METRIC_COUNT_JOURNEYS, nil)
	assert.Nil(t, err)
	assert.Equal(t, 0.0, count)
	rate, err = ComputeJourneyMetric(ALERT_METRIC_CONVERSION_RATE, nil)
	assert.Nil(t, err)
	assert.Equal(t, 0.0, rate)

	_, err = ComputeJourneyMetric(ALERT_METRIC_DROPOFF_RATE, rows)
	assert.NotNil(t, err)
}

func TestComputeDropoffRate(t *testing.T) {
	rows := []TransitionDaily{
		{FromStep: StepCheckout, ToStep: StepConversion, CountTransitions: 30},
		{FromStep: StepCheckout, ToStep: StepContentView, CountTransitions: 15},
		{FromStep: StepCheckout, ToStep: StepOther, CountTransitions: 5},
		{FromStep: StepAddToCart, ToStep: StepCheckout, CountTransitions: 40},
	}

	// 30 of 50 outgoing checkout transitions advance; backward moves
	// and Other do not.
	assert.Equal(t, 0.4, ComputeDropoffRate(StepCheckout, rows))

	// No outgoing transitions for the step reads as zero dropoff.
	assert.Equal(t, 0.0, ComputeDropoffRate(StepConversion, rows))
	assert.Equal(t, 0.0, ComputeDropoffRate(StepCheckout, nil))

	// Other sits outside the funnel, so nothing from it counts as
	// progress.
	assert.Equal(t, 1.0, ComputeDropoffRate(StepOther,
		[]TransitionDaily{{FromStep: StepOther, ToStep: StepConversion, CountTransitions: 10}}))

	// Both landing steps share the entry rank; moving between them is
	// not an advance.
	assert.Equal(t, 1.0, ComputeDropoffRate(StepPaidLanding,
		[]TransitionDaily{{FromStep: StepPaidLanding, ToStep: StepOrganicLanding, CountTransitions: 10}}))
}

func TestValidateAlertCondition(t *testing.T) {
	assert.NotNil(t, ValidateAlertCondition(nil))

	condition := AlertCondition{
		ComparisonMode: PREVIOUS_PERIOD,
		WindowDays:     7,
		ThresholdPct:   -20,
		CooldownDays:   3,
	}
	assert.Nil(t, ValidateAlertCondition(&condition))

	bad := condition
	bad.ComparisonMode = "same_period_last_year"
	assert.NotNil(t, ValidateAlertCondition(&bad))

	bad = condition
	bad.WindowDays = 0
	assert.NotNil(t, ValidateAlertCondition(&bad))

	bad = condition
	bad.ThresholdPct = 0
	assert.NotNil(t, ValidateAlertCondition(&bad))

	bad = condition
	bad.CooldownDays = -1
	assert.NotNil(t, ValidateAlertCondition(&bad))
}

func TestValidateAlertDefinition(t *testing.T) {
	definition := metricShiftDefinition(t, AlertScope{JourneyDefinitionID: 7})
	assert.Nil(t, ValidateAlertDefinition(definition))

	invalid := metricShiftDefinition(t, AlertScope{JourneyDefinitionID: 7})
	invalid.Domain = "pipelines"
	assert.NotNil(t, ValidateAlertDefinition(invalid))

	invalid = metricShiftDefinition(t, AlertScope{JourneyDefinitionID: 7})
	invalid.Type = "threshold"
	assert.NotNil(t, ValidateAlertDefinition(invalid))

	// Metric validity depends on the domain.
	invalid = metricShiftDefinition(t, AlertScope{JourneyDefinitionID: 7})
	invalid.Metric = ALERT_METRIC_DROPOFF_RATE
	assert.NotNil(t, ValidateAlertDefinition(invalid))

	funnel := metricShiftDefinition(t, AlertScope{JourneyDefinitionID: 7, Step: StepCheckout})
	funnel.Domain = ALERT_DOMAIN_FUNNELS
	funnel.Metric = ALERT_METRIC_DROPOFF_RATE
	assert.Nil(t, ValidateAlertDefinition(funnel))

	funnel.Metric = ALERT_METRIC_CONVERSION_RATE
	assert.NotNil(t, ValidateAlertDefinition(funnel))

	// Funnel alerts must name the watched step.
	stepless := metricShiftDefinition(t, AlertScope{JourneyDefinitionID: 7})
	stepless.Domain = ALERT_DOMAIN_FUNNELS
	stepless.Metric = ALERT_METRIC_DROPOFF_RATE
	assert.NotNil(t, ValidateAlertDefinition(stepless))

	missingScope := metricShiftDefinition(t, AlertScope{JourneyDefinitionID: 7})
	missingScope.Scope = nil
	assert.NotNil(t, ValidateAlertDefinition(missingScope))

	unscoped := metricShiftDefinition(t, AlertScope{})
	assert.NotNil(t, ValidateAlertDefinition(unscoped))

	badCondition := metricShiftDefinition(t, AlertScope{JourneyDefinitionID: 7})
	conditionJson, err := U.EncodeStructTypeToPostgresJsonb(AlertCondition{
		ComparisonMode: PREVIOUS_PERIOD,
		WindowDays:     7,
	})
	assert.Nil(t, err)
	badCondition.Condition = conditionJson
	assert.NotNil(t, ValidateAlertDefinition(badCondition))
}

func TestAlertDefinitionPayloadRoundTrip(t *testing.T) {
	definition := metricShiftDefinition(t, AlertScope{
		JourneyDefinitionID: 7,
		ChannelGroup:        ChannelGroupPaidSearch,
		Device:              "mobile",
	})

	scope, err := definition.GetScope()
	assert.Nil(t, err)
	assert.Equal(t, int64(7), scope.JourneyDefinitionID)
	assert.Equal(t, ChannelGroupPaidSearch, scope.ChannelGroup)
	assert.Equal(t, "mobile", scope.Device)
	assert.Equal(t, "", scope.Step)

	condition, err := definition.GetCondition()
	assert.Nil(t, err)
	assert.Equal(t, PREVIOUS_PERIOD, condition.ComparisonMode)
	assert.Equal(t, 7, condition.WindowDays)
	assert.Equal(t, -20.0, condition.ThresholdPct)
	assert.Equal(t, 0, condition.CooldownDays)

	definition.Scope = nil
	_, err = definition.GetScope()
	assert.NotNil(t, err)
	definition.Condition = nil
	_, err = definition.GetCondition()
	assert.NotNil(t, err)
}

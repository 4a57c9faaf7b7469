package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func checkoutJourney(lastTouchClock string) Journey {
	return Journey{
		Touchpoints: []Touchpoint{
			{Channel: "google_cpc", Campaign: "brand_launch", Timestamp: "2026-03-10T10:00:00Z"},
			{EventName: "checkout_submit", Timestamp: lastTouchClock},
		},
		Converted: true,
	}
}

func rollupInput(profileID, device, country string, journey Journey) JourneyRollupInput {
	return JourneyRollupInput{ProfileID: profileID, Device: device, Country: country, Journey: journey}
}

func TestHashCanonicalPath(t *testing.T) {
	steps := []string{StepPaidLanding, StepCheckout, StepConversion}

	assert.Equal(t, HashCanonicalPath(steps), HashCanonicalPath(steps))
	assert.Equal(t, 64, len(HashCanonicalPath(steps)))
	assert.NotEqual(t, HashCanonicalPath(steps),
		HashCanonicalPath([]string{StepOrganicLanding, StepCheckout, StepConversion}))
}

func TestBuildDailyJourneyRollupsGroupsByPathAndDimensions(t *testing.T) {
	// Two desktop journeys share one row, the mobile one gets its own.
	inputs := []JourneyRollupInput{
		rollupInput("u1", "desktop", "US", checkoutJourney("2026-03-10T10:01:00Z")),
		rollupInput("u2", "desktop", "US", checkoutJourney("2026-03-10T10:02:00Z")),
		rollupInput("u3", "mobile", "US", checkoutJourney("2026-03-10T10:01:00Z")),
	}

	pathRows, transitionRows := BuildDailyJourneyRollups(42, 20260310, 7, 0, inputs)
	assert.Equal(t, 2, len(pathRows))

	for i := range pathRows {
		assert.Equal(t, int64(42), pathRows[i].ProjectID)
		assert.Equal(t, uint64(20260310), pathRows[i].DateKey)
		assert.Equal(t, int64(7), pathRows[i].JourneyDefinitionID)
		assert.Equal(t, ChannelGroupPaidSearch, pathRows[i].ChannelGroup)
		assert.Equal(t, "brand_launch", pathRows[i].CampaignID)
		assert.Equal(t, "US", pathRows[i].Country)
		assert.Equal(t, 3, pathRows[i].PathLength)
		assert.NotEqual(t, "", pathRows[i].ID)
	}

	// Rows sort by hash, then dimensions; same hash here so desktop
	// comes before mobile.
	desktop, mobile := pathRows[0], pathRows[1]
	assert.Equal(t, "desktop", desktop.Device)
	assert.Equal(t, int64(2), desktop.CountJourneys)
	assert.Equal(t, int64(2), desktop.CountConversions)
	assert.Equal(t, "mobile", mobile.Device)
	assert.Equal(t, int64(1), mobile.CountJourneys)

	// Conversion spans of 60s and 120s: mean 90, nearest-rank p50 60,
	// p90 120, all at two decimals.
	assert.Equal(t, 90.0, desktop.AvgSecondsToConvert)
	assert.Equal(t, 60.0, desktop.P50SecondsToConvert)
	assert.Equal(t, 120.0, desktop.P90SecondsToConvert)

	steps, err := desktop.GetSteps()
	assert.Nil(t, err)
	assert.Equal(t, []string{StepPaidLanding, StepCheckout, StepConversion}, steps)

	// Each journey contributes two step transitions, split by device.
	assert.Equal(t, 4, len(transitionRows))
	assert.Equal(t, StepCheckout, transitionRows[0].FromStep)
	assert.Equal(t, StepConversion, transitionRows[0].ToStep)
	assert.Equal(t, "desktop", transitionRows[0].Device)
	assert.Equal(t, int64(2), transitionRows[0].CountTransitions)
	assert.Equal(t, int64(2), transitionRows[0].CountProfiles)
	assert.Equal(t, StepCheckout, transitionRows[1].FromStep)
	assert.Equal(t, "mobile", transitionRows[1].Device)
	assert.Equal(t, StepPaidLanding, transitionRows[2].FromStep)
	assert.Equal(t, StepCheckout, transitionRows[2].ToStep)
	assert.Equal(t, int64(2), transitionRows[2].CountTransitions)
}

func TestBuildDailyJourneyRollupsCountsRepeatProfilesOnce(t *testing.T) {
	// The same profile recorded twice doubles transitions but not the
	// distinct profile count.
	inputs := []JourneyRollupInput{
		rollupInput("u1", "desktop", "US", checkoutJourney("2026-03-10T10:01:00Z")),
		rollupInput("u1", "desktop", "US", checkoutJourney("2026-03-10T10:01:00Z")),
	}

	_, transitionRows := BuildDailyJourneyRollups(42, 20260310, 7, 0, inputs)
	assert.Equal(t, 2, len(transitionRows))
	assert.Equal(t, int64(2), transitionRows[0].CountTransitions)
	assert.Equal(t, int64(1), transitionRows[0].CountProfiles)
}

func TestBuildDailyJourneyRollupsSeparatesConvertedAndAbandoned(t *testing.T) {
	converted := checkoutJourney("2026-03-10T10:01:00Z")
	abandoned := checkoutJourney("2026-03-10T10:01:00Z")
	abandoned.Converted = false

	// The conversion step changes the canonical path, so the two land
	// in different rows.
	pathRows, _ := BuildDailyJourneyRollups(42, 20260310, 7, 0, []JourneyRollupInput{
		rollupInput("u1", "desktop", "US", converted),
		rollupInput("u2", "desktop", "US", abandoned),
	})
	assert.Equal(t, 2, len(pathRows))

	var convertedRow, abandonedRow *PathDaily
	for i := range pathRows {
		if pathRows[i].CountConversions > 0 {
			convertedRow = &pathRows[i]
		} else {
			abandonedRow = &pathRows[i]
		}
	}
	assert.NotNil(t, convertedRow)
	assert.NotNil(t, abandonedRow)
	assert.Equal(t, 3, convertedRow.PathLength)
	assert.Equal(t, 2, abandonedRow.PathLength)
	assert.Equal(t, int64(1), abandonedRow.CountJourneys)
	assert.Equal(t, int64(0), abandonedRow.CountConversions)
}

func TestBuildDailyJourneyRollupsSkipsEmptyJourneys(t *testing.T) {
	pathRows, transitionRows := BuildDailyJourneyRollups(42, 20260310, 7, 0,
		[]JourneyRollupInput{rollupInput("u1", "desktop", "US", Journey{})})
	assert.Equal(t, 0, len(pathRows))
	assert.Equal(t, 0, len(transitionRows))

	// A converted journey without touchpoints still counts as a bare
	// conversion path with no transitions.
	pathRows, transitionRows = BuildDailyJourneyRollups(42, 20260310, 7, 0,
		[]JourneyRollupInput{rollupInput("u1", "desktop", "US", Journey{Converted: true})})
	assert.Equal(t, 1, len(pathRows))
	assert.Equal(t, 1, pathRows[0].PathLength)
	assert.Equal(t, ChannelGroupOther, pathRows[0].ChannelGroup)
	assert.Equal(t, 0, len(transitionRows))
}

func TestBuildDailyJourneyRollupsHonorsMaxPathSteps(t *testing.T) {
	inputs := []JourneyRollupInput{
		rollupInput("u1", "desktop", "US", checkoutJourney("2026-03-10T10:01:00Z")),
	}

	pathRows, transitionRows := BuildDailyJourneyRollups(42, 20260310, 7, 2, inputs)
	assert.Equal(t, 1, len(pathRows))
	assert.Equal(t, 2, pathRows[0].PathLength)
	assert.Equal(t, 1, len(transitionRows))
}

func TestBuildDailyJourneyRollupsDeterministicOrder(t *testing.T) {
	inputs := []JourneyRollupInput{
		rollupInput("u1", "desktop", "US", checkoutJourney("2026-03-10T10:01:00Z")),
		rollupInput("u2", "mobile", "DE", checkoutJourney("2026-03-10T10:02:00Z")),
		rollupInput("u3", "desktop", "IN", Journey{Touchpoints: []Touchpoint{{Channel: "email"}}, Converted: true}),
	}

	first, firstTransitions := BuildDailyJourneyRollups(42, 20260310, 7, 0, inputs)
	second, secondTransitions := BuildDailyJourneyRollups(42, 20260310, 7, 0, inputs)

	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].PathHash, second[i].PathHash)
		assert.Equal(t, first[i].Device, second[i].Device)
		assert.Equal(t, first[i].Country, second[i].Country)
		assert.Equal(t, first[i].CountJourneys, second[i].CountJourneys)
	}
	assert.Equal(t, len(firstTransitions), len(secondTransitions))
	for i := range firstTransitions {
		assert.Equal(t, firstTransitions[i].FromStep, secondTransitions[i].FromStep)
		assert.Equal(t, firstTransitions[i].ToStep, secondTransitions[i].ToStep)
		assert.Equal(t, firstTransitions[i].Device, secondTransitions[i].Device)
	}
}

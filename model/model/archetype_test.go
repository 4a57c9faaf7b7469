package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePathArchetypesClustersByExactPath(t *testing.T) {
	// Six converted journeys across three exact paths. The abandoned
	// journey and the touchless conversion stay out of the clustering.
	timedJourney := Journey{
		Touchpoints: []Touchpoint{
			{Channel: "google", Timestamp: "2026-03-01T10:00:00Z"},
			{Channel: "email", Timestamp: "2026-03-01T11:00:00Z"},
		},
		Converted: true,
	}
	fasterJourney := Journey{
		Touchpoints: []Touchpoint{
			{Channel: "google", Timestamp: "2026-03-01T10:00:00Z"},
			{Channel: "email", Timestamp: "2026-03-01T10:30:00Z"},
		},
		Converted: true,
	}
	journeys := []Journey{
		timedJourney,
		fasterJourney,
		convertedJourney(10, "google", "email"),
		convertedJourney(10, "facebook"),
		convertedJourney(10, "facebook"),
		convertedJourney(10, "google"),
		abandonedJourney("google", "email"),
		{Converted: true},
	}

	archetypes := ComputePathArchetypes(journeys, ArchetypeKModeAuto, 0)
	assert.Equal(t, 3, len(archetypes))

	assert.Equal(t, "google > email", archetypes[0].Path)
	assert.Equal(t, int64(3), archetypes[0].Count)
	assert.Equal(t, 0.5, archetypes[0].Share)
	assert.Equal(t, 2.0, archetypes[0].AvgPathLength)
	// Channel tie inside the cluster breaks alphabetically.
	assert.Equal(t, []string{"email", "google"}, archetypes[0].TopChannels)
	// Only the two timestamped journeys carry conversion spans,
	// 3600s and 1800s.
	assert.NotNil(t, archetypes[0].AvgTimeToConvertSecs)
	assert.Equal(t, 2700.0, *archetypes[0].AvgTimeToConvertSecs)

	assert.Equal(t, "facebook", archetypes[1].Path)
	assert.Equal(t, int64(2), archetypes[1].Count)
	assert.Equal(t, 0.333333, archetypes[1].Share)
	assert.Equal(t, 1.0, archetypes[1].AvgPathLength)
	assert.Nil(t, archetypes[1].AvgTimeToConvertSecs)

	assert.Equal(t, "google", archetypes[2].Path)
	assert.Equal(t, int64(1), archetypes[2].Count)
	assert.Equal(t, 0.166667, archetypes[2].Share)
}

func TestComputePathArchetypesOrdersTiesByPath(t *testing.T) {
	journeys := []Journey{
		convertedJourney(10, "email"),
		convertedJourney(10, "email"),
		convertedJourney(10, "email"),
		convertedJourney(10, "google"),
		convertedJourney(10, "google"),
		convertedJourney(10, "social"),
		convertedJourney(10, "referral"),
	}

	archetypes := ComputePathArchetypes(journeys, ArchetypeKModeAuto, 0)
	assert.Equal(t, 4, len(archetypes))
	assert.Equal(t, "email", archetypes[0].Path)
	assert.Equal(t, "google", archetypes[1].Path)
	// Equal counts fall back to path order.
	assert.Equal(t, "referral", archetypes[2].Path)
	assert.Equal(t, "social", archetypes[3].Path)
}

func TestComputePathArchetypesHonorsCustomK(t *testing.T) {
	journeys := []Journey{
		convertedJourney(10, "email"),
		convertedJourney(10, "email"),
		convertedJourney(10, "google"),
		convertedJourney(10, "referral"),
	}

	archetypes := ComputePathArchetypes(journeys, ArchetypeKModeCustom, 2)
	assert.Equal(t, 2, len(archetypes))
	assert.Equal(t, "email", archetypes[0].Path)
	assert.Equal(t, "google", archetypes[1].Path)

	// Non-positive custom k and unknown modes fall back to the
	// default cap.
	assert.Equal(t, 3, len(ComputePathArchetypes(journeys, ArchetypeKModeCustom, 0)))
	assert.Equal(t, 3, len(ComputePathArchetypes(journeys, "centroid", 1)))
}

func TestComputePathArchetypesEmptyBatch(t *testing.T) {
	archetypes := ComputePathArchetypes([]Journey{}, ArchetypeKModeAuto, 0)
	assert.NotNil(t, archetypes)
	assert.Equal(t, 0, len(archetypes))

	archetypes = ComputePathArchetypes([]Journey{abandonedJourney("google")}, ArchetypeKModeAuto, 0)
	assert.Equal(t, 0, len(archetypes))
}

func TestComputePathAnomaliesFlagsHighUnknownShare(t *testing.T) {
	// Two of five touchpoints lack a resolvable channel, above the
	// 30% bar. Every touchpoint is timestamped so only the channel
	// check trips.
	journeys := []Journey{
		{
			Touchpoints: []Touchpoint{
				{Channel: "google", Timestamp: "2026-03-01T10:00:00Z"},
				{Channel: "", Timestamp: "2026-03-01T10:05:00Z"},
			},
			Converted: true,
		},
		{
			Touchpoints: []Touchpoint{
				{Channel: "email", Timestamp: "2026-03-02T10:00:00Z"},
				{Channel: ChannelUnknown, Timestamp: "2026-03-02T10:05:00Z"},
				{Channel: "facebook", Timestamp: "2026-03-02T10:10:00Z"},
			},
		},
	}

	anomalies := ComputePathAnomalies(journeys)
	assert.Equal(t, 1, len(anomalies))
	assert.Equal(t, AnomalyTypeHighUnknownShare, anomalies[0].Type)
	assert.Equal(t, AnomalySeverityHigh, anomalies[0].Severity)
	assert.Equal(t, "unknown_channel_share", anomalies[0].MetricKey)
	assert.Equal(t, 0.4, anomalies[0].MetricValue)
	assert.Contains(t, anomalies[0].Message, "40.0%")
}

func TestComputePathAnomaliesFlagsMissingTimestamps(t *testing.T) {
	// Three of four touchpoints carry no timestamp, above the 50% bar.
	journeys := []Journey{
		{
			Touchpoints: []Touchpoint{
				{Channel: "google", Timestamp: "2026-03-01T10:00:00Z"},
				{Channel: "email"},
			},
			Converted: true,
		},
		{
			Touchpoints: []Touchpoint{
				{Channel: "facebook"},
				{Channel: "direct"},
			},
		},
	}

	anomalies := ComputePathAnomalies(journeys)
	assert.Equal(t, 1, len(anomalies))
	assert.Equal(t, AnomalyTypeMissingTimestamps, anomalies[0].Type)
	assert.Equal(t, AnomalySeverityMedium, anomalies[0].Severity)
	assert.Equal(t, "missing_timestamp_share", anomalies[0].MetricKey)
	assert.Equal(t, 0.75, anomalies[0].MetricValue)
}

func TestComputePathAnomaliesFlagsLongPaths(t *testing.T) {
	long := Journey{Converted: true}
	for i := 0; i < 9; i++ {
		long.Touchpoints = append(long.Touchpoints,
			Touchpoint{Channel: "google", Timestamp: "2026-03-01T10:00:00Z"})
	}

	anomalies := ComputePathAnomalies([]Journey{long})
	assert.Equal(t, 1, len(anomalies))
	assert.Equal(t, AnomalyTypeLongPaths, anomalies[0].Type)
	assert.Equal(t, AnomalySeverityMedium, anomalies[0].Severity)
	assert.Equal(t, "max_avg_path_length", anomalies[0].MetricKey)
	assert.Equal(t, 9.0, anomalies[0].MetricValue)

	// Abandoned journeys never form archetypes, so their length does
	// not trip the check.
	long.Converted = false
	short := Journey{
		Touchpoints: []Touchpoint{
			{Channel: "google", Timestamp: "2026-03-01T10:00:00Z"},
			{Channel: "email", Timestamp: "2026-03-01T10:05:00Z"},
		},
		Converted: true,
	}
	assert.Equal(t, 0, len(ComputePathAnomalies([]Journey{long, short})))
}

func TestComputePathAnomaliesThresholdsAreExclusive(t *testing.T) {
	// Exactly 30% unknown channels and exactly 50% missing timestamps
	// sit on the thresholds and stay quiet.
	journeys := []Journey{
		{
			Touchpoints: []Touchpoint{
				{Channel: "google", Timestamp: "2026-03-01T10:00:00Z"},
				{Channel: "", Timestamp: "2026-03-01T10:05:00Z"},
				{Channel: "email", Timestamp: "2026-03-01T10:10:00Z"},
				{Channel: "", Timestamp: "2026-03-01T10:15:00Z"},
				{Channel: "facebook", Timestamp: "2026-03-01T10:20:00Z"},
			},
			Converted: true,
		},
		{
			Touchpoints: []Touchpoint{
				{Channel: "google"},
				{Channel: ""},
				{Channel: "email"},
				{Channel: "direct"},
				{Channel: "referral"},
			},
		},
	}

	anomalies := ComputePathAnomalies(journeys)
	assert.NotNil(t, anomalies)
	assert.Equal(t, 0, len(anomalies))
}

func TestComputePathAnomaliesReportsMultiple(t *testing.T) {
	journey := Journey{Converted: true}
	for i := 0; i < 5; i++ {
		journey.Touchpoints = append(journey.Touchpoints, Touchpoint{})
	}

	anomalies := ComputePathAnomalies([]Journey{journey})
	assert.Equal(t, 2, len(anomalies))
	assert.Equal(t, AnomalyTypeHighUnknownShare, anomalies[0].Type)
	assert.Equal(t, 1.0, anomalies[0].MetricValue)
	assert.Equal(t, AnomalyTypeMissingTimestamps, anomalies[1].Type)
	assert.Equal(t, 1.0, anomalies[1].MetricValue)
}

func TestResolveArchetypeLimit(t *testing.T) {
	assert.Equal(t, 5, resolveArchetypeLimit(ArchetypeKModeCustom, 5))
	assert.Equal(t, DefaultArchetypeCount, resolveArchetypeLimit(ArchetypeKModeCustom, 0))
	assert.Equal(t, DefaultArchetypeCount, resolveArchetypeLimit(ArchetypeKModeCustom, -3))
	assert.Equal(t, DefaultArchetypeCount, resolveArchetypeLimit(ArchetypeKModeAuto, 5))
	assert.Equal(t, DefaultArchetypeCount, resolveArchetypeLimit("", 0))
}

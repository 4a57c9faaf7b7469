package model

import (
	"fmt"
	"sort"
	"strings"

	U "journeylens/util"
)

// PathStringSeparator joins channel sequences into the path strings
// used for archetype grouping and rollup path hashing.
const PathStringSeparator = " > "

const (
	ArchetypeKModeAuto   = "auto"
	ArchetypeKModeCustom = "custom"

	// DefaultArchetypeCount caps cluster lists under auto k mode.
	DefaultArchetypeCount = 10
)

// TopChannelsPerArchetype bounds the most-frequent-channel list
// reported per cluster.
const TopChannelsPerArchetype = 3

// PathArchetype is one exact-path cluster of converted journeys.
// AvgTimeToConvertSecs is nil when no journey in the cluster carries
// parseable, ordered first and last touchpoint timestamps.
type PathArchetype struct {
	Path                 string   `json:"path"`
	Count                int64    `json:"count"`
	Share                float64  `json:"share"`
	AvgPathLength        float64  `json:"avg_path_length"`
	AvgTimeToConvertSecs *float64 `json:"avg_time_to_convert_secs,omitempty"`
	TopChannels          []string `json:"top_channels"`
}

type pathCluster struct {
	path          string
	journeyCount  int64
	totalLength   int64
	convertSecs   []float64
	channelCounts map[string]int64
}

// groupJourneysByPath clusters converted journeys with at least one
// touchpoint by exact path-string equality.
func groupJourneysByPath(journeys []Journey) map[string]*pathCluster {
	clusters := make(map[string]*pathCluster)
	for _, journey := range attributableJourneys(journeys) {
		path := strings.Join(journey.ChannelPath(), PathStringSeparator)

		cluster, exists := clusters[path]
		if !exists {
			cluster = &pathCluster{path: path, channelCounts: make(map[string]int64)}
			clusters[path] = cluster
		}

		cluster.journeyCount++
		cluster.totalLength += int64(len(journey.Touchpoints))
		for i := range journey.Touchpoints {
			cluster.channelCounts[journey.Touchpoints[i].ChannelOrUnknown()]++
		}
		if secs, ok := journey.TimeToConversionSecs(); ok {
			cluster.convertSecs = append(cluster.convertSecs, secs)
		}
	}
	return clusters
}

// topChannels returns up to limit channels by descending occurrence,
// ties broken alphabetically for stable output.
func (cluster *pathCluster) topChannels(limit int) []string {
	channels := make([]string, 0, len(cluster.channelCounts))
	for channel := range cluster.channelCounts {
		channels = append(channels, channel)
	}
	sort.Slice(channels, func(i, j int) bool {
		if cluster.channelCounts[channels[i]] != cluster.channelCounts[channels[j]] {
			return cluster.channelCounts[channels[i]] > cluster.channelCounts[channels[j]]
		}
		return channels[i] < channels[j]
	})
	if len(channels) > limit {
		channels = channels[:limit]
	}
	return channels
}

// resolveArchetypeLimit maps the k mode to a cluster cap. Unknown modes
// and non-positive custom values take the auto default.
func resolveArchetypeLimit(kMode string, k int) int {
	if kMode == ArchetypeKModeCustom && k > 0 {
		return k
	}
	return DefaultArchetypeCount
}

// ComputePathArchetypes clusters converted journeys by their exact
// channel path and returns the top clusters by descending occurrence.
// Share is relative to the converted journeys with touchpoints.
func ComputePathArchetypes(journeys []Journey, kMode string, k int) []PathArchetype {
	clusters := groupJourneysByPath(journeys)

	var totalConverted int64
	for _, cluster := range clusters {
		totalConverted += cluster.journeyCount
	}

	archetypes := make([]PathArchetype, 0, len(clusters))
	for _, cluster := range clusters {
		archetype := PathArchetype{
			Path:          cluster.path,
			Count:         cluster.journeyCount,
			Share:         U.RoundFloat(float64(cluster.journeyCount)/float64(totalConverted), CreditRoundingPlaces),
			AvgPathLength: U.RoundFloat(float64(cluster.totalLength)/float64(cluster.journeyCount), 2),
			TopChannels:   cluster.topChannels(TopChannelsPerArchetype),
		}
		if len(cluster.convertSecs) > 0 {
			avgSecs := U.RoundFloat(U.MeanFloat64(cluster.convertSecs), 2)
			archetype.AvgTimeToConvertSecs = &avgSecs
		}
		archetypes = append(archetypes, archetype)
	}

	sort.Slice(archetypes, func(i, j int) bool {
		if archetypes[i].Count != archetypes[j].Count {
			return archetypes[i].Count > archetypes[j].Count
		}
		return archetypes[i].Path < archetypes[j].Path
	})

	if limit := resolveArchetypeLimit(kMode, k); len(archetypes) > limit {
		archetypes = archetypes[:limit]
	}
	return archetypes
}

const (
	AnomalyTypeHighUnknownShare  = "high_unknown_share"
	AnomalyTypeMissingTimestamps = "missing_timestamps"
	AnomalyTypeLongPaths         = "long_paths"

	AnomalySeverityHigh   = "high"
	AnomalySeverityMedium = "medium"
)

const (
	// HighUnknownShareThreshold flags batches where unknown-channel
	// touchpoints exceed this fraction.
	HighUnknownShareThreshold = 0.30
	// MissingTimestampShareThreshold flags batches where untimestamped
	// touchpoints exceed this fraction.
	MissingTimestampShareThreshold = 0.50
	// LongPathAvgLengthThreshold flags batches whose longest archetype
	// average exceeds this many steps.
	LongPathAvgLengthThreshold = 8.0
)

// PathAnomaly is one structured data quality warning. Anomalies are
// informational, never errors; processing always continues.
type PathAnomaly struct {
	Type        string  `json:"type"`
	Severity    string  `json:"severity"`
	MetricKey   string  `json:"metric_key"`
	MetricValue float64 `json:"metric_value"`
	Message     string  `json:"message"`
}

// ComputePathAnomalies is a stateless scan over a journey batch for
// data quality defects. Results are recomputed per call, not persisted.
func ComputePathAnomalies(journeys []Journey) []PathAnomaly {
	anomalies := make([]PathAnomaly, 0)

	var totalTouchpoints, unknownTouchpoints, missingTimestamps int64
	for i := range journeys {
		for j := range journeys[i].Touchpoints {
			totalTouchpoints++
			if journeys[i].Touchpoints[j].ChannelOrUnknown() == ChannelUnknown {
				unknownTouchpoints++
			}
			if journeys[i].Touchpoints[j].Timestamp == "" {
				missingTimestamps++
			}
		}
	}
	if totalTouchpoints == 0 {
		return anomalies
	}

	unknownShare := float64(unknownTouchpoints) / float64(totalTouchpoints)
	if unknownShare > HighUnknownShareThreshold {
		anomalies = append(anomalies, PathAnomaly{
			Type:        AnomalyTypeHighUnknownShare,
			Severity:    AnomalySeverityHigh,
			MetricKey:   "unknown_channel_share",
			MetricValue: U.RoundFloat(unknownShare, 4),
			Message: fmt.Sprintf("%.1f%% of touchpoints have an unknown channel. Check tracking parameters.",
				unknownShare*100),
		})
	}

	missingShare := float64(missingTimestamps) / float64(totalTouchpoints)
	if missingShare > MissingTimestampShareThreshold {
		anomalies = append(anomalies, PathAnomaly{
			Type:        AnomalyTypeMissingTimestamps,
			Severity:    AnomalySeverityMedium,
			MetricKey:   "missing_timestamp_share",
			MetricValue: U.RoundFloat(missingShare, 4),
			Message: fmt.Sprintf("%.1f%% of touchpoints carry no timestamp. Time based models degrade to uniform weighting.",
				missingShare*100),
		})
	}

	maxAvgLength := 0.0
	for _, cluster := range groupJourneysByPath(journeys) {
		avgLength := float64(cluster.totalLength) / float64(cluster.journeyCount)
		if avgLength > maxAvgLength {
			maxAvgLength = avgLength
		}
	}
	if maxAvgLength > LongPathAvgLengthThreshold {
		anomalies = append(anomalies, PathAnomaly{
			Type:        AnomalyTypeLongPaths,
			Severity:    AnomalySeverityMedium,
			MetricKey:   "max_avg_path_length",
			MetricValue: U.RoundFloat(maxAvgLength, 2),
			Message: fmt.Sprintf("Longest archetype averages %.1f steps. Consider touchpoint dedup upstream.",
				maxAvgLength),
		})
	}
	return anomalies
}

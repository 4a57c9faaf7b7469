package model

import (
	"math"
)

// AttributionKeyWeight carries the credit share assigned to one
// attribution key (channel) for a single journey. Weights for one
// journey always sum to 1 so that credit is redistributed, never
// created or destroyed.
type AttributionKeyWeight struct {
	Key    string
	Weight float64
}

// returns full weight on the channel of the first touchpoint.
func getFirstTouchWeights(journey *Journey) []AttributionKeyWeight {
	touchpoints := journey.Touchpoints
	if len(touchpoints) == 0 {
		return []AttributionKeyWeight{}
	}
	return []AttributionKeyWeight{{Key: touchpoints[0].ChannelOrUnknown(), Weight: 1}}
}

// returns full weight on the channel of the final touchpoint.
func getLastTouchWeights(journey *Journey) []AttributionKeyWeight {
	touchpoints := journey.Touchpoints
	if len(touchpoints) == 0 {
		return []AttributionKeyWeight{}
	}
	return []AttributionKeyWeight{{Key: touchpoints[len(touchpoints)-1].ChannelOrUnknown(), Weight: 1}}
}

// returns equal weight per touchpoint position. A channel occupying
// multiple positions accumulates one share per position.
func getLinearWeights(journey *Journey) []AttributionKeyWeight {
	touchpoints := journey.Touchpoints
	if len(touchpoints) == 0 {
		return []AttributionKeyWeight{}
	}

	keys := make([]AttributionKeyWeight, 0, len(touchpoints))
	share := 1 / float64(len(touchpoints))
	for i := range touchpoints {
		keys = append(keys, AttributionKeyWeight{Key: touchpoints[i].ChannelOrUnknown(), Weight: share})
	}
	return keys
}

// calculateWeightForTimeDecay returns the decay weight for one touchpoint:
// y = pow(2, -x/halfLife), where x is the number of days the interaction
// happened prior to the conversion. A touchpoint halfLife days earlier
// than another receives half its credit.
func calculateWeightForTimeDecay(conversionTime, interactionTime int64, halfLifeDays float64) float64 {
	days := float64(conversionTime-interactionTime) / float64(SecsInADay)
	if days < 0 {
		days = 0
	}
	return math.Pow(2, -days/halfLifeDays)
}

// returns time-decay weights normalized to sum 1. The conversion time is
// the latest parseable touchpoint timestamp. Journeys where no touchpoint
// carries a usable timestamp degrade to linear weighting so the journey
// still distributes its full value.
func getTimeDecayWeights(journey *Journey, halfLifeDays float64) []AttributionKeyWeight {
	touchpoints := journey.Touchpoints
	if len(touchpoints) == 0 {
		return []AttributionKeyWeight{}
	}
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}

	conversionAt, hasConversionTime := journey.ConversionTime()
	if !hasConversionTime {
		return getLinearWeights(journey)
	}
	conversionUnix := conversionAt.Unix()

	keys := make([]AttributionKeyWeight, 0, len(touchpoints))
	totalWeight := 0.0
	for i := range touchpoints {
		weight := 0.0
		if interactionAt, err := touchpoints[i].Time(); err == nil {
			weight = calculateWeightForTimeDecay(conversionUnix, interactionAt.Unix(), halfLifeDays)
		}
		totalWeight += weight
		keys = append(keys, AttributionKeyWeight{Key: touchpoints[i].ChannelOrUnknown(), Weight: weight})
	}

	if totalWeight == 0 {
		return getLinearWeights(journey)
	}
	for i := range keys {
		keys[i].Weight = keys[i].Weight / totalWeight
	}
	return keys
}

// returns U-shaped weights: firstPct on the first touchpoint, lastPct on
// the last, and the remainder split evenly across interior positions.
// One touchpoint takes the full weight regardless of the configured
// percentages; two touchpoints renormalize firstPct and lastPct between
// themselves since no interior pool exists.
func getPositionBasedWeights(journey *Journey, firstPct, lastPct float64) []AttributionKeyWeight {
	touchpoints := journey.Touchpoints
	if len(touchpoints) == 0 {
		return []AttributionKeyWeight{}
	}

	keys := make([]AttributionKeyWeight, 0, len(touchpoints))
	for i := range touchpoints {
		keys = append(keys, AttributionKeyWeight{Key: touchpoints[i].ChannelOrUnknown(), Weight: 0})
	}

	switch len(keys) {
	case 1:
		keys[0].Weight = 1

	case 2:
		endSum := firstPct + lastPct
		if endSum == 0 {
			keys[0].Weight = 0.5
			keys[1].Weight = 0.5
		} else {
			keys[0].Weight = firstPct / endSum
			keys[1].Weight = lastPct / endSum
		}

	default:
		interiorShare := (1 - firstPct - lastPct) / float64(len(keys)-2)
		for i := range keys {
			keys[i].Weight = interiorShare
		}
		keys[0].Weight = firstPct
		keys[len(keys)-1].Weight = lastPct
	}
	return keys
}

// addJourneyCredit folds one journey's weight vector into the channel
// credit map, scaled by the journey's conversion value.
func addJourneyCredit(credit map[string]float64, keys []AttributionKeyWeight, conversionValue float64) {
	for i := range keys {
		credit[keys[i].Key] += keys[i].Weight * conversionValue
	}
}

// attributableJourneys filters to converted journeys with at least one
// touchpoint, the only ones that earn credit.
func attributableJourneys(journeys []Journey) []*Journey {
	filtered := make([]*Journey, 0, len(journeys))
	for i := range journeys {
		if journeys[i].IsAttributable() {
			filtered = append(filtered, &journeys[i])
		}
	}
	return filtered
}

// ComputeFirstTouchAttribution credits each conversion fully to the
// first touchpoint's channel.
func ComputeFirstTouchAttribution(journeys []Journey) map[string]float64 {
	credit := make(map[string]float64)
	for _, journey := range attributableJourneys(journeys) {
		addJourneyCredit(credit, getFirstTouchWeights(journey), journey.ConversionValue)
	}
	return credit
}

// ComputeLastTouchAttribution credits each conversion fully to the
// final touchpoint's channel.
func ComputeLastTouchAttribution(journeys []Journey) map[string]float64 {
	credit := make(map[string]float64)
	for _, journey := range attributableJourneys(journeys) {
		addJourneyCredit(credit, getLastTouchWeights(journey), journey.ConversionValue)
	}
	return credit
}

// ComputeLinearAttribution splits each conversion's value equally
// across its touchpoint positions.
func ComputeLinearAttribution(journeys []Journey) map[string]float64 {
	credit := make(map[string]float64)
	for _, journey := range attributableJourneys(journeys) {
		addJourneyCredit(credit, getLinearWeights(journey), journey.ConversionValue)
	}
	return credit
}

// ComputeTimeDecayAttribution weights touchpoints by recency against
// the conversion with the given half life in days.
func ComputeTimeDecayAttribution(journeys []Journey, halfLifeDays float64) map[string]float64 {
	credit := make(map[string]float64)
	for _, journey := range attributableJourneys(journeys) {
		addJourneyCredit(credit, getTimeDecayWeights(journey, halfLifeDays), journey.ConversionValue)
	}
	return credit
}

// ComputePositionBasedAttribution applies configurable first/last
// percentages with the remainder spread over interior touchpoints.
func ComputePositionBasedAttribution(journeys []Journey, firstPct, lastPct float64) map[string]float64 {
	credit := make(map[string]float64)
	for _, journey := range attributableJourneys(journeys) {
		addJourneyCredit(credit, getPositionBasedWeights(journey, firstPct, lastPct), journey.ConversionValue)
	}
	return credit
}

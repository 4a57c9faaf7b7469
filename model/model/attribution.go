package model

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	U "journeylens/util"
)

// Supported attribution methods.
const (
	AttributionMethodFirstTouch    = "first_touch"
	AttributionMethodLastTouch     = "last_touch"
	AttributionMethodLinear        = "linear"
	AttributionMethodTimeDecay     = "time_decay"
	AttributionMethodPositionBased = "position_based"
	AttributionMethodMarkov        = "markov"
)

const (
	SecsInADay = int64(86400)

	DefaultHalfLifeDays  = 7.0
	DefaultFirstTouchPct = 0.4
	DefaultLastTouchPct  = 0.4

	// Credit values on reports are rounded to this many decimals.
	CreditRoundingPlaces = 6
)

var attributionMethods = []string{
	AttributionMethodFirstTouch,
	AttributionMethodLastTouch,
	AttributionMethodLinear,
	AttributionMethodTimeDecay,
	AttributionMethodPositionBased,
	AttributionMethodMarkov,
}

// AttributionQuery selects the method and its parameters for one
// attribution run over a journey batch.
type AttributionQuery struct {
	Method              string `json:"method"`
	JourneyDefinitionID int64  `json:"journey_definition_id"`
	From                int64  `json:"from"`
	To                  int64  `json:"to"`

	// Time-decay only. Zero means the default half life.
	HalfLifeDays float64 `json:"half_life_days"`

	// Position-based only. Both zero means the default U-shape split.
	FirstTouchPct float64 `json:"first_touch_pct"`
	LastTouchPct  float64 `json:"last_touch_pct"`

	// Markov only. Zero means the default minimum.
	MarkovMinUniquePaths int `json:"markov_min_unique_paths"`
}

// AttributionReport is the result of one attribution run. Credit values
// are rounded; Channels is the sorted key list of ChannelCredit.
// FallbackApplied reports that the Markov model substituted the linear
// result for a degenerate chain.
type AttributionReport struct {
	Method           string             `json:"method"`
	TotalConversions int64              `json:"total_conversions"`
	TotalValue       float64            `json:"total_value"`
	ChannelCredit    map[string]float64 `json:"channel_credit"`
	Channels         []string           `json:"channels"`
	FallbackApplied  bool               `json:"fallback_applied"`
}

// IsValidAttributionMethod reports whether the method name is supported.
func IsValidAttributionMethod(method string) bool {
	return U.StringValueIn(method, attributionMethods)
}

// ValidateAttributionQuery rejects queries that cannot be dispatched:
// unknown method names and out-of-range model parameters.
func ValidateAttributionQuery(query *AttributionQuery) error {
	if query == nil {
		return errors.New("nil attribution query")
	}
	if !IsValidAttributionMethod(query.Method) {
		return errors.Errorf("invalid attribution method %q", query.Method)
	}

	if query.HalfLifeDays < 0 {
		return errors.New("half_life_days must be positive")
	}

	if query.Method == AttributionMethodPositionBased {
		firstPct, lastPct := query.positionPcts()
		if firstPct < 0 || firstPct > 1 || lastPct < 0 || lastPct > 1 {
			return errors.New("first_touch_pct and last_touch_pct must be within [0,1]")
		}
		if firstPct+lastPct > 1 {
			return errors.New("first_touch_pct and last_touch_pct must sum to at most 1")
		}
	}
	return nil
}

// positionPcts resolves the configured position-based split, applying
// the default U-shape when both ends are left unset.
func (query *AttributionQuery) positionPcts() (float64, float64) {
	if query.FirstTouchPct == 0 && query.LastTouchPct == 0 {
		return DefaultFirstTouchPct, DefaultLastTouchPct
	}
	return query.FirstTouchPct, query.LastTouchPct
}

// MergeChannelCredit folds one credit map into another. Credit
// accumulation is associative and commutative per channel, so batches
// attributed independently can be merged this way.
func MergeChannelCredit(into, from map[string]float64) {
	for channel, credit := range from {
		into[channel] += credit
	}
}

// RunAttribution dispatches the journey batch to the queried model and
// assembles the credit report.
func RunAttribution(journeys []Journey, query *AttributionQuery) (*AttributionReport, error) {
	startTime := time.Now()
	logFields := log.Fields{"method": query.Method, "journeys": len(journeys)}
	defer LogOnSlowExecutionWithParams(startTime, &logFields)

	if err := ValidateAttributionQuery(query); err != nil {
		return nil, err
	}

	var credit map[string]float64
	fallbackApplied := false

	switch query.Method {
	case AttributionMethodFirstTouch:
		credit = ComputeFirstTouchAttribution(journeys)
	case AttributionMethodLastTouch:
		credit = ComputeLastTouchAttribution(journeys)
	case AttributionMethodLinear:
		credit = ComputeLinearAttribution(journeys)
	case AttributionMethodTimeDecay:
		halfLifeDays := query.HalfLifeDays
		if halfLifeDays == 0 {
			halfLifeDays = DefaultHalfLifeDays
		}
		credit = ComputeTimeDecayAttribution(journeys, halfLifeDays)
	case AttributionMethodPositionBased:
		firstPct, lastPct := query.positionPcts()
		credit = ComputePositionBasedAttribution(journeys, firstPct, lastPct)
	case AttributionMethodMarkov:
		credit, fallbackApplied = ComputeMarkovAttribution(journeys, query.MarkovMinUniquePaths)
	}

	var totalConversions int64
	totalValue := 0.0
	for _, journey := range attributableJourneys(journeys) {
		totalConversions++
		totalValue += journey.ConversionValue
	}

	roundedCredit := make(map[string]float64, len(credit))
	for channel, value := range credit {
		roundedCredit[channel] = U.RoundFloat(value, CreditRoundingPlaces)
	}

	report := &AttributionReport{
		Method:           query.Method,
		TotalConversions: totalConversions,
		TotalValue:       U.RoundFloat(totalValue, CreditRoundingPlaces),
		ChannelCredit:    roundedCredit,
		Channels:         U.SortedStringKeys(roundedCredit),
		FallbackApplied:  fallbackApplied,
	}

	if fallbackApplied {
		log.WithFields(log.Fields{"method": query.Method,
			"journeys": len(journeys)}).Warn("Degenerate markov chain. Applied linear fallback.")
	}
	return report, nil
}

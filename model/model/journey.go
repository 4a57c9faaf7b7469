package model

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// ChannelUnknown is the sentinel bucket for touchpoints whose channel
// is empty or could not be resolved.
const ChannelUnknown = "unknown"

// Touchpoint is a single recorded interaction on a customer journey.
// Timestamp is kept as the raw ingested string and parsed lazily,
// since upstream trackers disagree on formats and some rows carry none.
type Touchpoint struct {
	Channel   string `json:"channel"`
	Campaign  string `json:"campaign,omitempty"`
	EventName string `json:"event_name,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Journey is an ordered sequence of touchpoints for one customer,
// ending in a conversion outcome.
type Journey struct {
	CustomerID      string       `json:"customer_id,omitempty"`
	Touchpoints     []Touchpoint `json:"touchpoints"`
	Converted       bool         `json:"converted"`
	ConversionValue float64      `json:"conversion_value,omitempty"`
}

// UnmarshalJSON defaults converted to true when the field is absent.
// Ingested conversion paths are usually exported from a converting
// cohort, so absence means converted rather than not.
func (journey *Journey) UnmarshalJSON(data []byte) error {
	type journeyAlias Journey

	decoded := struct {
		*journeyAlias
		Converted *bool `json:"converted"`
	}{journeyAlias: (*journeyAlias)(journey)}

	if err := json.Unmarshal(data, &decoded); err != nil {
		return errors.Wrap(err, "failed to decode journey")
	}

	if decoded.Converted == nil {
		journey.Converted = true
	} else {
		journey.Converted = *decoded.Converted
	}
	return nil
}

// touchpointTimeLayouts are tried in order when parsing timestamps.
var touchpointTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTouchpointTime parses a raw touchpoint timestamp. An empty or
// unparseable value returns an error, never a zero time treated as valid.
func ParseTouchpointTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty touchpoint timestamp")
	}

	for _, layout := range touchpointTimeLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unsupported touchpoint timestamp %q", value)
}

// ChannelOrUnknown normalizes the touchpoint channel for credit keys.
func (touchpoint *Touchpoint) ChannelOrUnknown() string {
	if touchpoint.Channel == "" {
		return ChannelUnknown
	}
	return touchpoint.Channel
}

// Time returns the parsed touchpoint timestamp.
func (touchpoint *Touchpoint) Time() (time.Time, error) {
	return ParseTouchpointTime(touchpoint.Timestamp)
}

// IsAttributable reports whether the journey earns credit, i.e. it
// converted and has at least one touchpoint to assign the credit to.
func (journey *Journey) IsAttributable() bool {
	return journey.Converted && len(journey.Touchpoints) > 0
}

// ConversionTime returns the timestamp of the conversion, taken as the
// latest parseable touchpoint timestamp. ok is false when no touchpoint
// carries a usable timestamp.
func (journey *Journey) ConversionTime() (time.Time, bool) {
	var conversionTime time.Time
	found := false
	for i := range journey.Touchpoints {
		parsed, err := journey.Touchpoints[i].Time()
		if err != nil {
			continue
		}
		if !found || parsed.After(conversionTime) {
			conversionTime = parsed
			found = true
		}
	}
	return conversionTime, found
}

// TimeToConversionSecs returns the elapsed seconds between the first and
// last parseable touchpoints of the journey. ok is false when fewer than
// one usable timestamp exists or the ordering is inverted.
func (journey *Journey) TimeToConversionSecs() (float64, bool) {
	var first, last time.Time
	found := false
	for i := range journey.Touchpoints {
		parsed, err := journey.Touchpoints[i].Time()
		if err != nil {
			continue
		}
		if !found {
			first, last = parsed, parsed
			found = true
			continue
		}
		if parsed.Before(first) {
			first = parsed
		}
		if parsed.After(last) {
			last = parsed
		}
	}
	if !found {
		return 0, false
	}
	return last.Sub(first).Seconds(), true
}

// ChannelPath returns the ordered channel sequence of the journey with
// empty channels normalized to the unknown bucket.
func (journey *Journey) ChannelPath() []string {
	path := make([]string, 0, len(journey.Touchpoints))
	for i := range journey.Touchpoints {
		path = append(path, journey.Touchpoints[i].ChannelOrUnknown())
	}
	return path
}

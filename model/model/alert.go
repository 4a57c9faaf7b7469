package model

import (
	"time"

	"github.com/jinzhu/gorm/dialects/postgres"
	"github.com/jinzhu/now"
	"github.com/pkg/errors"

	U "journeylens/util"
)

const (
	ALERT_DOMAIN_JOURNEYS = "journeys"
	ALERT_DOMAIN_FUNNELS  = "funnels"

	ALERT_TYPE_METRIC_SHIFT = "metric_shift"

	PREVIOUS_PERIOD = "previous_period"

	ALERT_SCHEDULE_DAILY = "daily"

	ALERT_METRIC_CONVERSION_RATE = "conversion_rate"
	ALERT_METRIC_COUNT_JOURNEYS  = "count_journeys"
	ALERT_METRIC_DROPOFF_RATE    = "dropoff_rate"

	AlertStatusActive   = "active"
	AlertStatusDisabled = "disabled"
)

var ValidAlertDomains = []string{ALERT_DOMAIN_JOURNEYS, ALERT_DOMAIN_FUNNELS}
var ValidDateRangeComparisions = []string{PREVIOUS_PERIOD}
var ValidJourneyAlertMetrics = []string{ALERT_METRIC_CONVERSION_RATE, ALERT_METRIC_COUNT_JOURNEYS}
var ValidFunnelAlertMetrics = []string{ALERT_METRIC_DROPOFF_RATE}

// AlertDefinition is a threshold watch on the journey rollup tables.
// Scope and condition are configuration payloads; "last fired" state is
// never kept here, it is derived from AlertEvent history.
type AlertDefinition struct {
	ID        string          `gorm:"column:id; type:uuid" json:"id"`
	ProjectID int64           `gorm:"column:project_id; primary_key:true" json:"project_id"`
	Name      string          `gorm:"column:name; not null" json:"name"`
	Domain    string          `gorm:"column:domain; not null" json:"domain"`
	Type      string          `gorm:"column:type; not null" json:"type"`
	Metric    string          `gorm:"column:metric; not null" json:"metric"`
	Scope     *postgres.Jsonb `gorm:"column:scope" json:"scope"`
	Condition *postgres.Jsonb `gorm:"column:condition" json:"condition"`
	Schedule  string          `gorm:"column:schedule; default:'daily'" json:"schedule"`
	Status    string          `gorm:"column:status; not null; default:'active'" json:"status"`
	CreatedAt time.Time       `gorm:"column:created_at; autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at; autoUpdateTime" json:"updated_at"`
}

func (AlertDefinition) TableName() string {
	return "alert_definitions"
}

// AlertScope targets the definition at a slice of the rollup tables.
// Step is required for funnel domain alerts; the dimension filters are
// optional and empty means unfiltered.
type AlertScope struct {
	JourneyDefinitionID int64  `json:"journey_definition_id"`
	Step                string `json:"step,omitempty"`
	PathHash            string `json:"path_hash,omitempty"`
	ChannelGroup        string `json:"channel_group,omitempty"`
	Device              string `json:"device,omitempty"`
	Country             string `json:"country,omitempty"`
}

// AlertCondition holds the firing rule. ThresholdPct is signed: a
// negative threshold watches for drops, a positive one for spikes.
type AlertCondition struct {
	ComparisonMode string  `json:"comparison_mode"`
	WindowDays     int     `json:"window_days"`
	ThresholdPct   float64 `json:"threshold_pct"`
	CooldownDays   int     `json:"cooldown_days"`
}

// AlertEvent records one firing. Append only; at most one event may
// exist per (alert_definition_id, fired_date), which is the same-day
// dedupe contract.
type AlertEvent struct {
	ID                string    `gorm:"column:id; type:uuid" json:"id"`
	ProjectID         int64     `gorm:"column:project_id; primary_key:true" json:"project_id"`
	AlertDefinitionID string    `gorm:"column:alert_definition_id; not null" json:"alert_definition_id"`
	FiredDate         uint64    `gorm:"column:fired_date; not null" json:"fired_date"`
	CurrentValue      float64   `gorm:"column:current_value" json:"current_value"`
	BaselineValue     float64   `gorm:"column:baseline_value" json:"baseline_value"`
	DeltaPct          float64   `gorm:"column:delta_pct" json:"delta_pct"`
	CreatedAt         time.Time `gorm:"column:created_at; autoCreateTime" json:"created_at"`
}

func (AlertEvent) TableName() string {
	return "alert_events"
}

// GetScope decodes the scope payload.
func (definition *AlertDefinition) GetScope() (AlertScope, error) {
	var scope AlertScope
	if U.IsEmptyPostgresJsonb(definition.Scope) {
		return scope, errors.New("empty alert scope")
	}
	if err := U.DecodePostgresJsonbToStructType(definition.Scope, &scope); err != nil {
		return scope, errors.Wrap(err, "failed to decode alert scope")
	}
	return scope, nil
}

// GetCondition decodes the condition payload.
func (definition *AlertDefinition) GetCondition() (AlertCondition, error) {
	var condition AlertCondition
	if U.IsEmptyPostgresJsonb(definition.Condition) {
		return condition, errors.New("empty alert condition")
	}
	if err := U.DecodePostgresJsonbToStructType(definition.Condition, &condition); err != nil {
		return condition, errors.Wrap(err, "failed to decode alert condition")
	}
	return condition, nil
}

// ValidateAlertCondition rejects malformed firing rules up front;
// evaluation assumes a valid condition.
func ValidateAlertCondition(condition *AlertCondition) error {
	if condition == nil {
		return errors.New("nil alert condition")
	}
	if !U.StringValueIn(condition.ComparisonMode, ValidDateRangeComparisions) {
		return errors.Errorf("invalid comparison mode %q", condition.ComparisonMode)
	}
	if condition.WindowDays < 1 {
		return errors.New("window_days must be at least 1")
	}
	if condition.ThresholdPct == 0 {
		return errors.New("threshold_pct must be non zero")
	}
	if condition.CooldownDays < 0 {
		return errors.New("cooldown_days must not be negative")
	}
	return nil
}

// ValidateAlertDefinition checks domain, metric and payloads of a
// definition before it is accepted or evaluated.
func ValidateAlertDefinition(definition *AlertDefinition) error {
	if !U.StringValueIn(definition.Domain, ValidAlertDomains) {
		return errors.Errorf("invalid alert domain %q", definition.Domain)
	}
	if definition.Type != ALERT_TYPE_METRIC_SHIFT {
		return errors.Errorf("invalid alert type %q", definition.Type)
	}

	switch definition.Domain {
	case ALERT_DOMAIN_JOURNEYS:
		if !U.StringValueIn(definition.Metric, ValidJourneyAlertMetrics) {
			return errors.Errorf("invalid journeys metric %q", definition.Metric)
		}
	case ALERT_DOMAIN_FUNNELS:
		if !U.StringValueIn(definition.Metric, ValidFunnelAlertMetrics) {
			return errors.Errorf("invalid funnels metric %q", definition.Metric)
		}
	}

	scope, err := definition.GetScope()
	if err != nil {
		return err
	}
	if scope.JourneyDefinitionID == 0 {
		return errors.New("alert scope requires a journey_definition_id")
	}
	if definition.Domain == ALERT_DOMAIN_FUNNELS && scope.Step == "" {
		return errors.New("funnels alert scope requires a step")
	}

	condition, err := definition.GetCondition()
	if err != nil {
		return err
	}
	return ValidateAlertCondition(&condition)
}

// AlertWindows are the date key ranges the evaluator compares, both
// inclusive. The baseline is the equal-length period immediately before
// the current window.
type AlertWindows struct {
	CurrentFrom  uint64
	CurrentTo    uint64
	BaselineFrom uint64
	BaselineTo   uint64
}

// ResolveAlertWindows derives the comparison windows for an evaluation
// as of the given time. The current window is the trailing windowDays
// ending on the evaluation day.
func ResolveAlertWindows(asOf time.Time, windowDays int) AlertWindows {
	dayStart := now.New(asOf.UTC()).BeginningOfDay()
	return AlertWindows{
		CurrentFrom:  U.DateAsFormattedInt(dayStart.AddDate(0, 0, -(windowDays - 1))),
		CurrentTo:    U.DateAsFormattedInt(dayStart),
		BaselineFrom: U.DateAsFormattedInt(dayStart.AddDate(0, 0, -(2*windowDays - 1))),
		BaselineTo:   U.DateAsFormattedInt(dayStart.AddDate(0, 0, -windowDays)),
	}
}

// ComputeDeltaPct returns the percentage change of current against
// baseline. ok is false when the baseline is zero and no meaningful
// percentage exists.
func ComputeDeltaPct(current, baseline float64) (float64, bool) {
	if baseline == 0 {
		return 0, false
	}
	return (current - baseline) / baseline * 100, true
}

// ShouldFireAlert applies the signed threshold in its adverse
// direction: negative thresholds fire on drops at least that deep,
// positive thresholds on spikes at least that high.
func ShouldFireAlert(deltaPct, thresholdPct float64) bool {
	if thresholdPct < 0 {
		return deltaPct <= thresholdPct
	}
	return deltaPct >= thresholdPct
}

// ComputeJourneyMetric aggregates a journeys-domain metric over
// PathDaily rows.
func ComputeJourneyMetric(metric string, rows []PathDaily) (float64, error) {
	var sumJourneys, sumConversions int64
	for i := range rows {
		sumJourneys += rows[i].CountJourneys
		sumConversions += rows[i].CountConversions
	}

	switch metric {
	case ALERT_METRIC_COUNT_JOURNEYS:
		return float64(sumJourneys), nil
	case ALERT_METRIC_CONVERSION_RATE:
		if sumJourneys == 0 {
			return 0, nil
		}
		return float64(sumConversions) / float64(sumJourneys), nil
	}
	return 0, errors.Errorf("invalid journeys metric %q", metric)
}

// stepRank orders the canonical funnel for dropoff computation. Other
// sits outside the funnel and never counts as progress.
var stepRank = map[string]int{
	StepPaidLanding:    0,
	StepOrganicLanding: 0,
	StepContentView:    1,
	StepAddToCart:      2,
	StepCheckout:       3,
	StepConversion:     4,
}

// ComputeDropoffRate derives the dropoff of a funnel step from its
// outgoing transition distribution: the share of transitions that do
// not advance to a deeper step. Zero when the step has no outgoing
// transitions in the rows.
func ComputeDropoffRate(step string, rows []TransitionDaily) float64 {
	fromRank, inFunnel := stepRank[step]

	var total, advanced int64
	for i := range rows {
		if rows[i].FromStep != step {
			continue
		}
		total += rows[i].CountTransitions
		toRank, known := stepRank[rows[i].ToStep]
		if inFunnel && known && toRank > fromRank {
			advanced += rows[i].CountTransitions
		}
	}
	if total == 0 {
		return 0
	}
	return 1 - float64(advanced)/float64(total)
}

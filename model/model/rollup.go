package model

import (
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/gorm/dialects/postgres"

	U "journeylens/util"
)

// PathDaily is one rollup row: journeys that followed the same
// canonical step sequence on one day, within one dimension slice.
// Rows are unique on (date_key, journey_definition_id, path_hash,
// channel_group, campaign_id, device, country) and owned exclusively
// by the aggregation pipeline, which rewrites whole days.
type PathDaily struct {
	ID                  string          `gorm:"column:id; type:uuid" json:"id"`
	ProjectID           int64           `gorm:"column:project_id; primary_key:true" json:"project_id"`
	DateKey             uint64          `gorm:"column:date_key; not null" json:"date_key"`
	JourneyDefinitionID int64           `gorm:"column:journey_definition_id; not null" json:"journey_definition_id"`
	PathHash            string          `gorm:"column:path_hash; not null" json:"path_hash"`
	PathSteps           *postgres.Jsonb `gorm:"column:path_steps" json:"path_steps"`
	PathLength          int             `gorm:"column:path_length" json:"path_length"`
	CountJourneys       int64           `gorm:"column:count_journeys" json:"count_journeys"`
	CountConversions    int64           `gorm:"column:count_conversions" json:"count_conversions"`
	AvgSecondsToConvert float64         `gorm:"column:avg_seconds_to_convert" json:"avg_seconds_to_convert"`
	P50SecondsToConvert float64         `gorm:"column:p50_seconds_to_convert" json:"p50_seconds_to_convert"`
	P90SecondsToConvert float64         `gorm:"column:p90_seconds_to_convert" json:"p90_seconds_to_convert"`
	ChannelGroup        string          `gorm:"column:channel_group" json:"channel_group"`
	CampaignID          string          `gorm:"column:campaign_id" json:"campaign_id"`
	Device              string          `gorm:"column:device" json:"device"`
	Country             string          `gorm:"column:country" json:"country"`
	CreatedAt           time.Time       `gorm:"column:created_at; autoCreateTime" json:"created_at"`
}

func (PathDaily) TableName() string {
	return "path_daily"
}

// GetSteps decodes the canonical step sequence column.
func (row *PathDaily) GetSteps() ([]string, error) {
	var steps []string
	if U.IsEmptyPostgresJsonb(row.PathSteps) {
		return steps, nil
	}
	err := U.DecodePostgresJsonbToStructType(row.PathSteps, &steps)
	return steps, err
}

// TransitionDaily is one rollup row per consecutive canonical step pair
// observed on one day within one dimension slice. Same ownership and
// lifecycle as PathDaily.
type TransitionDaily struct {
	ID                  string    `gorm:"column:id; type:uuid" json:"id"`
	ProjectID           int64     `gorm:"column:project_id; primary_key:true" json:"project_id"`
	DateKey             uint64    `gorm:"column:date_key; not null" json:"date_key"`
	JourneyDefinitionID int64     `gorm:"column:journey_definition_id; not null" json:"journey_definition_id"`
	FromStep            string    `gorm:"column:from_step; not null" json:"from_step"`
	ToStep              string    `gorm:"column:to_step; not null" json:"to_step"`
	CountTransitions    int64     `gorm:"column:count_transitions" json:"count_transitions"`
	CountProfiles       int64     `gorm:"column:count_profiles" json:"count_profiles"`
	ChannelGroup        string    `gorm:"column:channel_group" json:"channel_group"`
	CampaignID          string    `gorm:"column:campaign_id" json:"campaign_id"`
	Device              string    `gorm:"column:device" json:"device"`
	Country             string    `gorm:"column:country" json:"country"`
	CreatedAt           time.Time `gorm:"column:created_at; autoCreateTime" json:"created_at"`
}

func (TransitionDaily) TableName() string {
	return "transition_daily"
}

// JourneyRollupInput is one decoded conversion path record handed to
// the rollup builder, with its rollup dimension tags.
type JourneyRollupInput struct {
	ProfileID string
	Device    string
	Country   string
	Journey   Journey
}

// rollupDimensions resolves the dimension tags of one record. Channel
// group and campaign come from the acquisition touchpoint.
func rollupDimensions(input *JourneyRollupInput) (string, string) {
	if len(input.Journey.Touchpoints) == 0 {
		return ChannelGroupOther, ""
	}
	first := &input.Journey.Touchpoints[0]
	return ChannelGroupForChannel(first.ChannelOrUnknown()), first.Campaign
}

// HashCanonicalPath returns the stable hash of a canonical step
// sequence, the PathDaily grouping key.
func HashCanonicalPath(steps []string) string {
	return U.HashKeyUsingSha256Checksum(strings.Join(steps, PathStringSeparator))
}

type pathGroupKey struct {
	pathHash     string
	channelGroup string
	campaignID   string
	device       string
	country      string
}

type pathGroupAccumulator struct {
	steps            []string
	countJourneys    int64
	countConversions int64
	convertSecs      []float64
}

type transitionGroupKey struct {
	fromStep     string
	toStep       string
	channelGroup string
	campaignID   string
	device       string
	country      string
}

type transitionGroupAccumulator struct {
	countTransitions int64
	profiles         map[string]bool
}

// BuildDailyJourneyRollups computes the complete PathDaily and
// TransitionDaily row sets for one (day, definition) from its raw
// records. The function is pure so a day's rollup can be rebuilt from
// scratch at any time; output ordering is deterministic.
func BuildDailyJourneyRollups(projectID int64, dateKey uint64, definitionID int64,
	maxPathSteps int, inputs []JourneyRollupInput) ([]PathDaily, []TransitionDaily) {

	if maxPathSteps <= 0 {
		maxPathSteps = MaxPathSteps
	}

	pathGroups := make(map[pathGroupKey]*pathGroupAccumulator)
	transitionGroups := make(map[transitionGroupKey]*transitionGroupAccumulator)

	for i := range inputs {
		input := &inputs[i]
		steps := CanonicalStepsForJourney(&input.Journey, maxPathSteps)
		if len(steps) == 0 {
			continue
		}
		channelGroup, campaignID := rollupDimensions(input)

		pathKey := pathGroupKey{
			pathHash:     HashCanonicalPath(steps),
			channelGroup: channelGroup,
			campaignID:   campaignID,
			device:       input.Device,
			country:      input.Country,
		}
		pathGroup, exists := pathGroups[pathKey]
		if !exists {
			pathGroup = &pathGroupAccumulator{steps: steps}
			pathGroups[pathKey] = pathGroup
		}
		pathGroup.countJourneys++
		if input.Journey.Converted {
			pathGroup.countConversions++
		}
		if secs, ok := input.Journey.TimeToConversionSecs(); ok {
			pathGroup.convertSecs = append(pathGroup.convertSecs, secs)
		}

		for position := 0; position+1 < len(steps); position++ {
			transitionKey := transitionGroupKey{
				fromStep:     steps[position],
				toStep:       steps[position+1],
				channelGroup: channelGroup,
				campaignID:   campaignID,
				device:       input.Device,
				country:      input.Country,
			}
			transitionGroup, exists := transitionGroups[transitionKey]
			if !exists {
				transitionGroup = &transitionGroupAccumulator{profiles: make(map[string]bool)}
				transitionGroups[transitionKey] = transitionGroup
			}
			transitionGroup.countTransitions++
			transitionGroup.profiles[input.ProfileID] = true
		}
	}

	pathRows := make([]PathDaily, 0, len(pathGroups))
	for key, group := range pathGroups {
		row := PathDaily{
			ID:                  U.GetUUID(),
			ProjectID:           projectID,
			DateKey:             dateKey,
			JourneyDefinitionID: definitionID,
			PathHash:            key.pathHash,
			PathLength:          len(group.steps),
			CountJourneys:       group.countJourneys,
			CountConversions:    group.countConversions,
			ChannelGroup:        key.channelGroup,
			CampaignID:          key.campaignID,
			Device:              key.device,
			Country:             key.country,
		}
		if stepsJsonb, err := U.EncodeStructTypeToPostgresJsonb(group.steps); err == nil {
			row.PathSteps = stepsJsonb
		}
		if len(group.convertSecs) > 0 {
			row.AvgSecondsToConvert = U.RoundFloat(U.MeanFloat64(group.convertSecs), 2)
			row.P50SecondsToConvert = U.RoundFloat(U.Percentile(group.convertSecs, 50), 2)
			row.P90SecondsToConvert = U.RoundFloat(U.Percentile(group.convertSecs, 90), 2)
		}
		pathRows = append(pathRows, row)
	}
	sort.Slice(pathRows, func(i, j int) bool {
		if pathRows[i].PathHash != pathRows[j].PathHash {
			return pathRows[i].PathHash < pathRows[j].PathHash
		}
		if pathRows[i].ChannelGroup != pathRows[j].ChannelGroup {
			return pathRows[i].ChannelGroup < pathRows[j].ChannelGroup
		}
		if pathRows[i].CampaignID != pathRows[j].CampaignID {
			return pathRows[i].CampaignID < pathRows[j].CampaignID
		}
		if pathRows[i].Device != pathRows[j].Device {
			return pathRows[i].Device < pathRows[j].Device
		}
		return pathRows[i].Country < pathRows[j].Country
	})

	transitionRows := make([]TransitionDaily, 0, len(transitionGroups))
	for key, group := range transitionGroups {
		transitionRows = append(transitionRows, TransitionDaily{
			ID:                  U.GetUUID(),
			ProjectID:           projectID,
			DateKey:             dateKey,
			JourneyDefinitionID: definitionID,
			FromStep:            key.fromStep,
			ToStep:              key.toStep,
			CountTransitions:    group.countTransitions,
			CountProfiles:       int64(len(group.profiles)),
			ChannelGroup:        key.channelGroup,
			CampaignID:          key.campaignID,
			Device:              key.device,
			Country:             key.country,
		})
	}
	sort.Slice(transitionRows, func(i, j int) bool {
		if transitionRows[i].FromStep != transitionRows[j].FromStep {
			return transitionRows[i].FromStep < transitionRows[j].FromStep
		}
		if transitionRows[i].ToStep != transitionRows[j].ToStep {
			return transitionRows[i].ToStep < transitionRows[j].ToStep
		}
		if transitionRows[i].ChannelGroup != transitionRows[j].ChannelGroup {
			return transitionRows[i].ChannelGroup < transitionRows[j].ChannelGroup
		}
		if transitionRows[i].CampaignID != transitionRows[j].CampaignID {
			return transitionRows[i].CampaignID < transitionRows[j].CampaignID
		}
		if transitionRows[i].Device != transitionRows[j].Device {
			return transitionRows[i].Device < transitionRows[j].Device
		}
		return transitionRows[i].Country < transitionRows[j].Country
	})

	return pathRows, transitionRows
}

package model

import (
	"journeylens/model/model"
)

// Model - Interface of all methods to be implemented by the stores.
type Model interface {
	// journey_definition
	CreateJourneyDefinition(projectID int64, definition *model.JourneyDefinition) (*model.JourneyDefinition, int)
	GetJourneyDefinition(projectID, definitionID int64) (*model.JourneyDefinition, int)
	GetActiveJourneyDefinitions(projectID int64) ([]model.JourneyDefinition, int)
	UpdateJourneyDefinitionStatus(projectID, definitionID int64, status string) int

	// conversion_path
	CreateConversionPath(projectID int64, conversionPath *model.ConversionPath) (*model.ConversionPath, int)
	GetConversionPathsForRange(projectID, definitionID int64, from, to int64) ([]model.ConversionPath, int)
	GetJourneysForRange(projectID, definitionID int64, from, to int64) ([]model.Journey, int)

	// rollup
	ReplaceJourneyRollupsForDay(projectID int64, dateKey uint64, definitionID int64,
		pathRows []model.PathDaily, transitionRows []model.TransitionDaily) int
	GetPathDailyRows(projectID, definitionID int64, fromDateKey, toDateKey uint64,
		scope *model.AlertScope) ([]model.PathDaily, int)
	GetTransitionDailyRows(projectID, definitionID int64, fromDateKey, toDateKey uint64,
		scope *model.AlertScope) ([]model.TransitionDaily, int)

	// alert_definition
	CreateAlertDefinition(projectID int64, definition *model.AlertDefinition) (*model.AlertDefinition, int)
	GetAlertDefinition(projectID int64, id string) (*model.AlertDefinition, int)
	GetActiveAlertDefinitions(projectID int64, domain string) ([]model.AlertDefinition, int)
	UpdateAlertDefinitionStatus(projectID int64, id string, status string) int

	// alert_event
	CreateAlertEvent(projectID int64, event *model.AlertEvent) (*model.AlertEvent, int)
	GetAlertEventByDate(projectID int64, alertDefinitionID string, firedDate uint64) (*model.AlertEvent, int)
	GetLastAlertEventBefore(projectID int64, alertDefinitionID string, beforeDate uint64) (*model.AlertEvent, int)
	GetAlertEvents(projectID int64, alertDefinitionID string, limit int) ([]model.AlertEvent, int)

	// attribution
	ExecuteAttributionQuery(projectID int64, query *model.AttributionQuery) (*model.AttributionReport, int)
}

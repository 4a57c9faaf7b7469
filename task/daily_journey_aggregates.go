package task

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	C "journeylens/config"
	"journeylens/model/model"
	"journeylens/model/store"
	U "journeylens/util"
)

// DefaultAggregateLookbackDays is the trailing window rebuilt on every
// run. Rewriting days already rolled up folds in late arriving records.
const DefaultAggregateLookbackDays = 3

// RunDailyJourneyAggregates rebuilds path_daily and transition_daily
// for every active journey definition of the project, one whole day at
// a time. Each (day, definition) unit is rebuilt from its raw
// conversion paths and swapped in atomically, so reruns and backfills
// converge to the same rows.
func RunDailyJourneyAggregates(projectID int64, configs map[string]interface{}) (map[string]interface{}, bool) {
	logCtx := log.WithFields(log.Fields{"project_id": projectID, "run_id": xid.New().String()})
	defer U.NotifyOnPanicWithError(C.GetConfig().Env, C.GetConfig().AppName)

	lookbackDays := DefaultAggregateLookbackDays
	if days, exists := configs["lookbackDays"].(int); exists && days > 0 {
		lookbackDays = days
	}
	endOfWindow := U.TimeNowZ()
	if endTimestamp, exists := configs["endTimestamp"].(int64); exists && endTimestamp > 0 {
		endOfWindow = time.Unix(endTimestamp, 0).UTC()
	}

	definitions, errCode := store.GetStore().GetActiveJourneyDefinitions(projectID)
	if errCode != http.StatusFound {
		logCtx.WithField("err_code", errCode).Error("Failed to get active journey definitions.")
		return map[string]interface{}{"error": "failed to get active journey definitions"}, false
	}
	if len(definitions) == 0 {
		logCtx.Info("No active journey definitions to aggregate.")
		return map[string]interface{}{"days_processed": 0, "source_rows_processed": 0}, true
	}

	dateKeys := U.DateKeysInRange(endOfWindow.AddDate(0, 0, -(lookbackDays-1)), endOfWindow)

	var daysProcessed, sourceRowsProcessed, unitsSkippedLocked int
	for _, dateKey := range dateKeys {
		for i := range definitions {
			definition := &definitions[i]
			settings, err := definition.GetSettings()
			if err != nil {
				logCtx.WithField("definition_id", definition.ID).WithError(err).
					Error("Failed to decode journey definition settings.")
				return map[string]interface{}{"error": "bad journey definition settings"}, false
			}

			// No two workers may rebuild the same (day, definition)
			// unit concurrently.
			mutex := C.NewTaskMutex(fmt.Sprintf("journey_aggregates:%d:%d:%d",
				projectID, definition.ID, dateKey))
			if mutex != nil {
				if err := mutex.Lock(); err != nil {
					logCtx.WithFields(log.Fields{"date_key": dateKey,
						"definition_id": definition.ID}).Warn("Skipping locked rollup unit.")
					unitsSkippedLocked++
					continue
				}
			}
			rowsProcessed, errCode := rebuildRollupsForDay(projectID, dateKey,
				definition.ID, settings.MaxPathSteps)
			if mutex != nil {
				mutex.Unlock()
			}
			if errCode != http.StatusCreated {
				logCtx.WithFields(log.Fields{"date_key": dateKey, "definition_id": definition.ID,
					"err_code": errCode}).Error("Failed to rebuild rollups for day.")
				return map[string]interface{}{"error": "failed to rebuild rollups",
					"date_key": dateKey, "definition_id": definition.ID}, false
			}
			sourceRowsProcessed += rowsProcessed
		}
		daysProcessed++
	}

	status := map[string]interface{}{
		"days_processed":        daysProcessed,
		"source_rows_processed": sourceRowsProcessed,
	}
	if unitsSkippedLocked > 0 {
		status["units_skipped_locked"] = unitsSkippedLocked
	}
	logCtx.WithFields(log.Fields{"days_processed": daysProcessed,
		"source_rows_processed": sourceRowsProcessed}).Info("Rebuilt journey rollups for window.")
	return status, true
}

// rebuildRollupsForDay recomputes one (day, definition) unit from raw
// conversion paths. Returns the count of source rows read on success.
func rebuildRollupsForDay(projectID int64, dateKey uint64, definitionID int64,
	maxPathSteps int) (int, int) {
	dayStart, dayEnd, err := U.DayRangeForDateKey(dateKey)
	if err != nil {
		return 0, http.StatusBadRequest
	}

	conversionPaths, errCode := store.GetStore().GetConversionPathsForRange(
		projectID, definitionID, dayStart, dayEnd)
	if errCode != http.StatusFound {
		return 0, errCode
	}

	inputs := make([]model.JourneyRollupInput, 0, len(conversionPaths))
	for i := range conversionPaths {
		journey, err := conversionPaths[i].GetJourney()
		if err != nil {
			log.WithFields(log.Fields{"project_id": projectID,
				"conversion_path_id": conversionPaths[i].ID}).WithError(err).
				Warn("Skipping conversion path with bad payload.")
			continue
		}
		inputs = append(inputs, model.JourneyRollupInput{
			ProfileID: conversionPaths[i].ProfileID,
			Device:    conversionPaths[i].Device,
			Country:   conversionPaths[i].Country,
			Journey:   journey,
		})
	}

	pathRows, transitionRows := model.BuildDailyJourneyRollups(projectID, dateKey,
		definitionID, maxPathSteps, inputs)
	errCode = store.GetStore().ReplaceJourneyRollupsForDay(projectID, dateKey,
		definitionID, pathRows, transitionRows)
	if errCode != http.StatusCreated {
		return 0, errCode
	}
	return len(conversionPaths), http.StatusCreated
}

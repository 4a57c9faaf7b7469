package task

import (
	"net/http"
	"time"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	C "journeylens/config"
	"journeylens/model/model"
	"journeylens/model/store"
	U "journeylens/util"
)

// EvaluateAlertDefinitions runs every active alert definition of the
// requested domain against the rollup tables as of the evaluation day
// and records an AlertEvent per firing. Reruns on the same day are
// no-ops through the per (definition, date) dedupe.
func EvaluateAlertDefinitions(projectID int64, configs map[string]interface{}) (map[string]interface{}, bool) {
	logCtx := log.WithFields(log.Fields{"project_id": projectID, "run_id": xid.New().String()})
	defer U.NotifyOnPanicWithError(C.GetConfig().Env, C.GetConfig().AppName)

	domain := model.ALERT_DOMAIN_JOURNEYS
	if configDomain, exists := configs["domain"].(string); exists && configDomain != "" {
		domain = configDomain
	}
	asOf := U.TimeNowZ()
	if endTimestamp, exists := configs["endTimestamp"].(int64); exists && endTimestamp > 0 {
		asOf = time.Unix(endTimestamp, 0).UTC()
	}

	definitions, errCode := store.GetStore().GetActiveAlertDefinitions(projectID, domain)
	if errCode != http.StatusFound {
		logCtx.WithField("err_code", errCode).Error("Failed to get active alert definitions.")
		return map[string]interface{}{"error": "failed to get active alert definitions"}, false
	}

	var evaluated, fired, suppressed, skippedInvalid int
	for i := range definitions {
		definition := &definitions[i]
		logFields := log.Fields{"project_id": projectID, "alert_definition_id": definition.ID}

		if err := model.ValidateAlertDefinition(definition); err != nil {
			log.WithFields(logFields).WithError(err).Warn("Skipping invalid alert definition.")
			skippedInvalid++
			continue
		}
		scope, err := definition.GetScope()
		if err != nil {
			log.WithFields(logFields).WithError(err).Warn("Skipping alert with bad scope.")
			skippedInvalid++
			continue
		}
		condition, err := definition.GetCondition()
		if err != nil {
			log.WithFields(logFields).WithError(err).Warn("Skipping alert with bad condition.")
			skippedInvalid++
			continue
		}

		windows := model.ResolveAlertWindows(asOf, condition.WindowDays)
		firedDate := windows.CurrentTo
		evaluated++

		// Same-day dedupe before any metric work.
		if _, errCode := store.GetStore().GetAlertEventByDate(projectID, definition.ID,
			firedDate); errCode == http.StatusFound {
			suppressed++
			continue
		}
		if condition.CooldownDays > 0 {
			lastEvent, errCode := store.GetStore().GetLastAlertEventBefore(projectID,
				definition.ID, firedDate)
			if errCode == http.StatusFound &&
				daysBetweenDateKeys(lastEvent.FiredDate, firedDate) <= condition.CooldownDays {
				suppressed++
				continue
			}
		}

		// The baseline query gets its own scope copy so the two window
		// reads cannot bleed filters into each other.
		baselineScope := model.AlertScope{}
		if err := U.DeepCopy(&scope, &baselineScope); err != nil {
			baselineScope = scope
		}

		currentValue, errCode := computeAlertMetricForWindow(projectID, definition, &scope,
			windows.CurrentFrom, windows.CurrentTo)
		if errCode != http.StatusOK {
			log.WithFields(logFields).WithField("err_code", errCode).
				Error("Failed to compute current window metric.")
			return map[string]interface{}{"error": "failed to compute alert metric"}, false
		}
		baselineValue, errCode := computeAlertMetricForWindow(projectID, definition, &baselineScope,
			windows.BaselineFrom, windows.BaselineTo)
		if errCode != http.StatusOK {
			log.WithFields(logFields).WithField("err_code", errCode).
				Error("Failed to compute baseline window metric.")
			return map[string]interface{}{"error": "failed to compute alert metric"}, false
		}

		deltaPct, hasBaseline := model.ComputeDeltaPct(currentValue, baselineValue)
		if !hasBaseline {
			log.WithFields(logFields).Debug("Zero baseline, nothing to compare against.")
			continue
		}
		if !model.ShouldFireAlert(deltaPct, condition.ThresholdPct) {
			continue
		}

		event := model.AlertEvent{
			AlertDefinitionID: definition.ID,
			FiredDate:         firedDate,
			CurrentValue:      currentValue,
			BaselineValue:     baselineValue,
			DeltaPct:          deltaPct,
		}
		_, errCode = store.GetStore().CreateAlertEvent(projectID, &event)
		if errCode == http.StatusConflict {
			// A concurrent evaluation recorded it first.
			suppressed++
			continue
		}
		if errCode != http.StatusCreated {
			log.WithFields(logFields).WithField("err_code", errCode).
				Error("Failed to create alert event.")
			return map[string]interface{}{"error": "failed to create alert event"}, false
		}
		log.WithFields(logFields).WithFields(log.Fields{"fired_date": firedDate,
			"delta_pct": deltaPct}).Info("Alert fired.")
		fired++
	}

	status := map[string]interface{}{
		"evaluated": evaluated,
		"fired":     fired,
	}
	if suppressed > 0 {
		status["suppressed"] = suppressed
	}
	if skippedInvalid > 0 {
		status["skipped_invalid"] = skippedInvalid
	}
	return status, true
}

// computeAlertMetricForWindow resolves the definition's metric over one
// date key window of the rollup tables.
func computeAlertMetricForWindow(projectID int64, definition *model.AlertDefinition,
	scope *model.AlertScope, fromDateKey, toDateKey uint64) (float64, int) {

	switch definition.Domain {
	case model.ALERT_DOMAIN_JOURNEYS:
		rows, errCode := store.GetStore().GetPathDailyRows(projectID,
			scope.JourneyDefinitionID, fromDateKey, toDateKey, scope)
		if errCode != http.StatusFound {
			return 0, errCode
		}
		value, err := model.ComputeJourneyMetric(definition.Metric, rows)
		if err != nil {
			return 0, http.StatusBadRequest
		}
		return value, http.StatusOK
	case model.ALERT_DOMAIN_FUNNELS:
		rows, errCode := store.GetStore().GetTransitionDailyRows(projectID,
			scope.JourneyDefinitionID, fromDateKey, toDateKey, scope)
		if errCode != http.StatusFound {
			return 0, errCode
		}
		return model.ComputeDropoffRate(scope.Step, rows), http.StatusOK
	}
	return 0, http.StatusBadRequest
}

// daysBetweenDateKeys counts whole days from one date key to another.
// Both parse to UTC midnights so the division is exact.
func daysBetweenDateKeys(fromDateKey, toDateKey uint64) int {
	fromTime, err := U.TimeFromDateKey(fromDateKey)
	if err != nil {
		return 0
	}
	toTime, err := U.TimeFromDateKey(toDateKey)
	if err != nil {
		return 0
	}
	return int(toTime.Sub(fromTime).Hours() / 24)
}

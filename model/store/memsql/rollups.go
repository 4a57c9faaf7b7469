package memsql

import (
	"net/http"
	"time"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"

	C "journeylens/config"
	"journeylens/model/model"
)

// ReplaceJourneyRollupsForDay rewrites the rollup rows of one
// (day, definition) as a single transaction: existing rows are deleted
// and the fresh set inserted, so the day is either fully the old
// rollup or fully the new one.
func (store *MemSQL) ReplaceJourneyRollupsForDay(projectID int64, dateKey uint64, definitionID int64,
	pathRows []model.PathDaily, transitionRows []model.TransitionDaily) int {
	logFields := log.Fields{
		"project_id":    projectID,
		"date_key":      dateKey,
		"definition_id": definitionID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if projectID == 0 || dateKey == 0 || definitionID == 0 {
		return http.StatusBadRequest
	}

	dbTx := db.Begin()
	if dbTx.Error != nil {
		log.WithFields(logFields).WithError(dbTx.Error).Error("Failed to begin rollup rewrite transaction.")
		return http.StatusInternalServerError
	}

	err := dbTx.Where("project_id = ? AND date_key = ? AND journey_definition_id = ?",
		projectID, dateKey, definitionID).Delete(&model.PathDaily{}).Error
	if err == nil {
		err = dbTx.Where("project_id = ? AND date_key = ? AND journey_definition_id = ?",
			projectID, dateKey, definitionID).Delete(&model.TransitionDaily{}).Error
	}
	if err != nil {
		dbTx.Rollback()
		log.WithFields(logFields).WithError(err).Error("Failed to delete existing rollup rows for day.")
		return http.StatusInternalServerError
	}

	for i := range pathRows {
		pathRows[i].ProjectID = projectID
		pathRows[i].DateKey = dateKey
		pathRows[i].JourneyDefinitionID = definitionID
		if err := dbTx.Create(&pathRows[i]).Error; err != nil {
			dbTx.Rollback()
			log.WithFields(logFields).WithError(err).Error("Failed to insert path daily row.")
			return http.StatusInternalServerError
		}
	}
	for i := range transitionRows {
		transitionRows[i].ProjectID = projectID
		transitionRows[i].DateKey = dateKey
		transitionRows[i].JourneyDefinitionID = definitionID
		if err := dbTx.Create(&transitionRows[i]).Error; err != nil {
			dbTx.Rollback()
			log.WithFields(logFields).WithError(err).Error("Failed to insert transition daily row.")
			return http.StatusInternalServerError
		}
	}

	if err := dbTx.Commit().Error; err != nil {
		dbTx.Rollback()
		log.WithFields(logFields).WithError(err).Error("Failed to commit rollup rewrite transaction.")
		return http.StatusInternalServerError
	}
	return http.StatusCreated
}

// applyRollupScopeFilters narrows a rollup query by the optional
// dimension filters of an alert scope.
func applyRollupScopeFilters(query *gorm.DB, scope *model.AlertScope) *gorm.DB {
	if scope == nil {
		return query
	}
	if scope.PathHash != "" {
		query = query.Where("path_hash = ?", scope.PathHash)
	}
	if scope.ChannelGroup != "" {
		query = query.Where("channel_group = ?", scope.ChannelGroup)
	}
	if scope.Device != "" {
		query = query.Where("device = ?", scope.Device)
	}
	if scope.Country != "" {
		query = query.Where("country = ?", scope.Country)
	}
	return query
}

func (store *MemSQL) GetPathDailyRows(projectID, definitionID int64, fromDateKey, toDateKey uint64,
	scope *model.AlertScope) ([]model.PathDaily, int) {
	logFields := log.Fields{
		"project_id":    projectID,
		"definition_id": definitionID,
		"from_date_key": fromDateKey,
		"to_date_key":   toDateKey,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if projectID == 0 || definitionID == 0 || fromDateKey > toDateKey {
		return nil, http.StatusBadRequest
	}

	query := db.Table("path_daily").
		Where("project_id = ? AND journey_definition_id = ?", projectID, definitionID).
		Where("date_key BETWEEN ? AND ?", fromDateKey, toDateKey)
	query = applyRollupScopeFilters(query, scope)

	rows := make([]model.PathDaily, 0)
	if err := query.Order("date_key ASC, path_hash ASC").Find(&rows).Error; err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to fetch path daily rows.")
		return nil, http.StatusInternalServerError
	}
	return rows, http.StatusFound
}

func (store *MemSQL) GetTransitionDailyRows(projectID, definitionID int64, fromDateKey, toDateKey uint64,
	scope *model.AlertScope) ([]model.TransitionDaily, int) {
	logFields := log.Fields{
		"project_id":    projectID,
		"definition_id": definitionID,
		"from_date_key": fromDateKey,
		"to_date_key":   toDateKey,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if projectID == 0 || definitionID == 0 || fromDateKey > toDateKey {
		return nil, http.StatusBadRequest
	}

	query := db.Table("transition_daily").
		Where("project_id = ? AND journey_definition_id = ?", projectID, definitionID).
		Where("date_key BETWEEN ? AND ?", fromDateKey, toDateKey)
	query = applyRollupScopeFilters(query, scope)
	if scope != nil && scope.Step != "" {
		query = query.Where("from_step = ?", scope.Step)
	}

	rows := make([]model.TransitionDaily, 0)
	if err := query.Order("date_key ASC, from_step ASC, to_step ASC").Find(&rows).Error; err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to fetch transition daily rows.")
		return nil, http.StatusInternalServerError
	}
	return rows, http.StatusFound
}

package memsql

import (
	"net/http"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"

	C "journeylens/config"
	"journeylens/model/model"
	U "journeylens/util"
)

// Unique constraint backing the same-day dedupe of alert events.
const uniqueAlertEventConstraint = "alert_events_definition_fired_date_unique_idx"

func isDuplicateAlertEventError(err error) bool {
	errMsg := err.Error()
	return strings.Contains(errMsg, uniqueAlertEventConstraint) ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "duplicate key value violates unique constraint")
}

func (store *MemSQL) CreateAlertDefinition(projectID int64, definition *model.AlertDefinition) (*model.AlertDefinition, int) {
	logFields := log.Fields{
		"project_id": projectID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if projectID == 0 || definition == nil || definition.Name == "" {
		return nil, http.StatusBadRequest
	}
	if err := model.ValidateAlertDefinition(definition); err != nil {
		log.WithFields(logFields).WithError(err).Error("Invalid alert definition.")
		return nil, http.StatusBadRequest
	}

	definition.ProjectID = projectID
	if definition.ID == "" {
		definition.ID = U.GetUUID()
	}
	if definition.Schedule == "" {
		definition.Schedule = model.ALERT_SCHEDULE_DAILY
	}
	if definition.Status == "" {
		definition.Status = model.AlertStatusActive
	}

	if err := db.Create(definition).Error; err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to create alert definition.")
		return nil, http.StatusInternalServerError
	}
	return definition, http.StatusCreated
}

func (store *MemSQL) GetAlertDefinition(projectID int64, id string) (*model.AlertDefinition, int) {
	logFields := log.Fields{
		"project_id": projectID,
		"id":         id,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var definition model.AlertDefinition
	err := db.Model(&model.AlertDefinition{}).
		Where("project_id = ? AND id = ?", projectID, id).
		Take(&definition).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, http.StatusNotFound
		}
		log.WithFields(logFields).WithError(err).Error("Failed to fetch alert definition.")
		return nil, http.StatusInternalServerError
	}
	return &definition, http.StatusFound
}

func (store *MemSQL) GetActiveAlertDefinitions(projectID int64, domain string) ([]model.AlertDefinition, int) {
	logFields := log.Fields{
		"project_id": projectID,
		"domain":     domain,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if !U.StringValueIn(domain, model.ValidAlertDomains) {
		return nil, http.StatusBadRequest
	}

	definitions := make([]model.AlertDefinition, 0)
	err := db.Table("alert_definitions").
		Where("project_id = ? AND domain = ? AND status = ?", projectID, domain, model.AlertStatusActive).
		Order("created_at ASC").Find(&definitions).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to fetch alert definitions for domain.")
		return nil, http.StatusInternalServerError
	}
	return definitions, http.StatusFound
}

func (store *MemSQL) UpdateAlertDefinitionStatus(projectID int64, id string, status string) int {
	logFields := log.Fields{
		"project_id": projectID,
		"id":         id,
		"status":     status,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	validStatuses := []string{model.AlertStatusActive, model.AlertStatusDisabled}
	if !U.StringValueIn(status, validStatuses) {
		return http.StatusBadRequest
	}

	updatedFields := map[string]interface{}{
		"status":     status,
		"updated_at": gorm.NowFunc(),
	}
	err := db.Table("alert_definitions").
		Where("project_id = ? AND id = ?", projectID, id).
		Update(updatedFields).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to update alert definition status.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

// CreateAlertEvent appends one firing. A unique constraint violation on
// (alert_definition_id, fired_date) means the definition already fired
// on that day and is reported as conflict, not as a failure.
func (store *MemSQL) CreateAlertEvent(projectID int64, event *model.AlertEvent) (*model.AlertEvent, int) {
	logFields := log.Fields{
		"project_id": projectID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if projectID == 0 || event == nil || event.AlertDefinitionID == "" || event.FiredDate == 0 {
		return nil, http.StatusBadRequest
	}

	event.ProjectID = projectID
	if event.ID == "" {
		event.ID = U.GetUUID()
	}

	if err := db.Create(event).Error; err != nil {
		if isDuplicateAlertEventError(err) {
			return nil, http.StatusConflict
		}
		log.WithFields(logFields).WithError(err).Error("Failed to create alert event.")
		return nil, http.StatusInternalServerError
	}
	return event, http.StatusCreated
}

func (store *MemSQL) GetAlertEventByDate(projectID int64, alertDefinitionID string, firedDate uint64) (*model.AlertEvent, int) {
	logFields := log.Fields{
		"project_id":    projectID,
		"definition_id": alertDefinitionID,
		"fired_date":    firedDate,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var event model.AlertEvent
	err := db.Model(&model.AlertEvent{}).
		Where("project_id = ? AND alert_definition_id = ? AND fired_date = ?",
			projectID, alertDefinitionID, firedDate).
		Take(&event).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, http.StatusNotFound
		}
		log.WithFields(logFields).WithError(err).Error("Failed to fetch alert event by date.")
		return nil, http.StatusInternalServerError
	}
	return &event, http.StatusFound
}

func (store *MemSQL) GetLastAlertEventBefore(projectID int64, alertDefinitionID string, beforeDate uint64) (*model.AlertEvent, int) {
	logFields := log.Fields{
		"project_id":    projectID,
		"definition_id": alertDefinitionID,
		"before_date":   beforeDate,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var event model.AlertEvent
	err := db.Model(&model.AlertEvent{}).
		Where("project_id = ? AND alert_definition_id = ? AND fired_date < ?",
			projectID, alertDefinitionID, beforeDate).
		Order("fired_date DESC").
		Take(&event).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, http.StatusNotFound
		}
		log.WithFields(logFields).WithError(err).Error("Failed to fetch last alert event.")
		return nil, http.StatusInternalServerError
	}
	return &event, http.StatusFound
}

func (store *MemSQL) GetAlertEvents(projectID int64, alertDefinitionID string, limit int) ([]model.AlertEvent, int) {
	logFields := log.Fields{
		"project_id":    projectID,
		"definition_id": alertDefinitionID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if limit <= 0 {
		limit = 100
	}

	events := make([]model.AlertEvent, 0)
	err := db.Table("alert_events").
		Where("project_id = ? AND alert_definition_id = ?", projectID, alertDefinitionID).
		Order("fired_date DESC").Limit(limit).Find(&events).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to fetch alert events.")
		return nil, http.StatusInternalServerError
	}
	return events, http.StatusFound
}

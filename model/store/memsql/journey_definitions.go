package memsql

import (
	"net/http"
	"time"

	"github.com/jinzhu/gorm"
	log "github.com/sirupsen/logrus"

	C "journeylens/config"
	"journeylens/model/model"
	U "journeylens/util"
)

func (store *MemSQL) CreateJourneyDefinition(projectID int64, definition *model.JourneyDefinition) (*model.JourneyDefinition, int) {
	logFields := log.Fields{
		"project_id": projectID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if projectID == 0 || definition == nil || definition.Name == "" {
		return nil, http.StatusBadRequest
	}

	definition.ProjectID = projectID
	if definition.Status == "" {
		definition.Status = model.JourneyDefinitionStatusActive
	}

	if err := db.Create(definition).Error; err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to create journey definition.")
		return nil, http.StatusInternalServerError
	}
	return definition, http.StatusCreated
}

func (store *MemSQL) GetJourneyDefinition(projectID, definitionID int64) (*model.JourneyDefinition, int) {
	logFields := log.Fields{
		"project_id":    projectID,
		"definition_id": definitionID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	var definition model.JourneyDefinition
	err := db.Model(&model.JourneyDefinition{}).
		Where("project_id = ? AND id = ?", projectID, definitionID).
		Take(&definition).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, http.StatusNotFound
		}
		log.WithFields(logFields).WithError(err).Error("Failed to fetch journey definition.")
		return nil, http.StatusInternalServerError
	}
	return &definition, http.StatusFound
}

func (store *MemSQL) GetActiveJourneyDefinitions(projectID int64) ([]model.JourneyDefinition, int) {
	logFields := log.Fields{
		"project_id": projectID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	definitions := make([]model.JourneyDefinition, 0)
	err := db.Table("journey_definitions").
		Where("project_id = ? AND status = ?", projectID, model.JourneyDefinitionStatusActive).
		Order("id ASC").Find(&definitions).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to fetch journey definitions for project.")
		return nil, http.StatusInternalServerError
	}
	return definitions, http.StatusFound
}

func (store *MemSQL) UpdateJourneyDefinitionStatus(projectID, definitionID int64, status string) int {
	logFields := log.Fields{
		"project_id":    projectID,
		"definition_id": definitionID,
		"status":        status,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	validStatuses := []string{model.JourneyDefinitionStatusActive, model.JourneyDefinitionStatusDisabled}
	if !U.StringValueIn(status, validStatuses) {
		return http.StatusBadRequest
	}

	updatedFields := map[string]interface{}{
		"status":     status,
		"updated_at": gorm.NowFunc(),
	}
	err := db.Table("journey_definitions").
		Where("project_id = ? AND id = ?", projectID, definitionID).
		Update(updatedFields).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to update journey definition status.")
		return http.StatusInternalServerError
	}
	return http.StatusAccepted
}

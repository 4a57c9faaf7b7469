package memsql

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	C "journeylens/config"
	"journeylens/model/model"
	U "journeylens/util"
)

func (store *MemSQL) CreateConversionPath(projectID int64, conversionPath *model.ConversionPath) (*model.ConversionPath, int) {
	logFields := log.Fields{
		"project_id": projectID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if projectID == 0 || conversionPath == nil {
		return nil, http.StatusBadRequest
	}
	if conversionPath.JourneyDefinitionID == 0 || conversionPath.ConversionTimestamp <= 0 {
		return nil, http.StatusBadRequest
	}
	if U.IsEmptyPostgresJsonb(conversionPath.PathPayload) {
		return nil, http.StatusBadRequest
	}

	conversionPath.ProjectID = projectID
	if conversionPath.ID == "" {
		conversionPath.ID = U.GetUUID()
	}

	if err := db.Create(conversionPath).Error; err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to create conversion path.")
		return nil, http.StatusInternalServerError
	}
	return conversionPath, http.StatusCreated
}

func (store *MemSQL) GetConversionPathsForRange(projectID, definitionID int64, from, to int64) ([]model.ConversionPath, int) {
	logFields := log.Fields{
		"project_id":    projectID,
		"definition_id": definitionID,
		"from":          from,
		"to":            to,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	db := C.GetServices().Db

	if projectID == 0 || definitionID == 0 || from > to {
		return nil, http.StatusBadRequest
	}

	conversionPaths := make([]model.ConversionPath, 0)
	err := db.Table("conversion_paths").
		Where("project_id = ? AND journey_definition_id = ?", projectID, definitionID).
		Where("conversion_timestamp BETWEEN ? AND ?", from, to).
		Order("conversion_timestamp ASC").Find(&conversionPaths).Error
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to fetch conversion paths for range.")
		return nil, http.StatusInternalServerError
	}
	return conversionPaths, http.StatusFound
}

// GetJourneysForRange decodes the payloads of the range into journeys.
// Records with undecodable payloads are skipped with a warning, they
// never fail the batch.
func (store *MemSQL) GetJourneysForRange(projectID, definitionID int64, from, to int64) ([]model.Journey, int) {
	conversionPaths, errCode := store.GetConversionPathsForRange(projectID, definitionID, from, to)
	if errCode != http.StatusFound {
		return nil, errCode
	}

	journeys := make([]model.Journey, 0, len(conversionPaths))
	for i := range conversionPaths {
		journey, err := conversionPaths[i].GetJourney()
		if err != nil {
			log.WithFields(log.Fields{"project_id": projectID,
				"conversion_path_id": conversionPaths[i].ID}).WithError(err).
				Warn("Skipping conversion path with bad payload.")
			continue
		}
		journeys = append(journeys, journey)
	}
	return journeys, http.StatusFound
}

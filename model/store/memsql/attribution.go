package memsql

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	cacheRedis "journeylens/cache/redis"
	C "journeylens/config"
	"journeylens/model/model"
	U "journeylens/util"
)

const (
	attributionReportCachePrefix = "attribution:report"

	attributionReportCacheExpirySecs = float64(6 * 60 * 60)
)

// attributionQueryCacheKey derives the report cache key from the full
// query payload, so any parameter change is a different key.
func attributionQueryCacheKey(projectID int64, query *model.AttributionQuery) (*cacheRedis.Key, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	suffix := U.HashKeyUsingSha256Checksum(string(queryJSON))
	return cacheRedis.NewKey(projectID, attributionReportCachePrefix, suffix)
}

// getCachedAttributionReport checks redis first and falls back to the
// in-process query cache. Cache failures are treated as misses.
func (store *MemSQL) getCachedAttributionReport(projectID int64, query *model.AttributionQuery) (*model.AttributionReport, bool) {
	cacheKey, err := attributionQueryCacheKey(projectID, query)
	if err != nil {
		return nil, false
	}

	if C.IsRedisConfigured() {
		value, found, err := cacheRedis.GetIfExists(cacheKey)
		if err != nil {
			log.WithError(err).Warn("Failed to read attribution report from redis cache.")
		} else if found {
			var report model.AttributionReport
			if err := json.Unmarshal([]byte(value), &report); err == nil {
				return &report, true
			}
		}
	}

	queryCache := C.GetServices().QueryCache
	if queryCache == nil {
		return nil, false
	}
	keyString, err := cacheKey.Key()
	if err != nil {
		return nil, false
	}
	if cached, found := queryCache.Get(keyString); found {
		if report, ok := cached.(*model.AttributionReport); ok {
			return report, true
		}
	}
	return nil, false
}

func (store *MemSQL) cacheAttributionReport(projectID int64, query *model.AttributionQuery, report *model.AttributionReport) {
	cacheKey, err := attributionQueryCacheKey(projectID, query)
	if err != nil {
		return
	}

	if C.IsRedisConfigured() {
		reportJSON, err := json.Marshal(report)
		if err == nil {
			if err := cacheRedis.Set(cacheKey, string(reportJSON), attributionReportCacheExpirySecs); err != nil {
				log.WithError(err).Warn("Failed to write attribution report to redis cache.")
			}
		}
	}

	if queryCache := C.GetServices().QueryCache; queryCache != nil {
		if keyString, err := cacheKey.Key(); err == nil {
			queryCache.Add(keyString, report)
		}
	}
}

// ExecuteAttributionQuery loads the journeys of the queried definition
// and range, runs the queried attribution model over them and returns
// the credit report. Reports are cached per exact query.
func (store *MemSQL) ExecuteAttributionQuery(projectID int64, queryOriginal *model.AttributionQuery) (*model.AttributionReport, int) {
	logFields := log.Fields{
		"project_id": projectID,
	}
	defer model.LogOnSlowExecutionWithParams(time.Now(), &logFields)
	defer U.NotifyOnPanicWithError(C.GetConfig().Env, C.GetConfig().AppName)

	if projectID == 0 || queryOriginal == nil {
		return nil, http.StatusBadRequest
	}

	var query model.AttributionQuery
	if err := U.DeepCopy(queryOriginal, &query); err != nil {
		log.WithFields(logFields).WithError(err).Error("Failed to copy attribution query.")
		return nil, http.StatusInternalServerError
	}

	if err := model.ValidateAttributionQuery(&query); err != nil {
		log.WithFields(logFields).WithError(err).Error("Invalid attribution query.")
		return nil, http.StatusBadRequest
	}
	if query.JourneyDefinitionID == 0 || query.From <= 0 || query.To < query.From {
		return nil, http.StatusBadRequest
	}

	if report, found := store.getCachedAttributionReport(projectID, &query); found {
		return report, http.StatusOK
	}

	journeys, errCode := store.GetJourneysForRange(projectID, query.JourneyDefinitionID, query.From, query.To)
	if errCode != http.StatusFound {
		return nil, errCode
	}

	report, err := model.RunAttribution(journeys, &query)
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("Attribution run failed.")
		return nil, http.StatusBadRequest
	}

	store.cacheAttributionReport(projectID, &query, report)
	return report, http.StatusOK
}

package task_wrapper

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// TaskFuncWithProjectId fans a task func out across projects and folds
// the per-project status maps into one report. A failing project is
// recorded and the remaining projects still run.
func TaskFuncWithProjectId(jobName string, lookback int, projectIds []int64,
	f func(int64, map[string]interface{}) (map[string]interface{}, bool),
	configs map[string]interface{}) map[string]interface{} {

	finalStatus := make(map[string]interface{})
	configs["lookbackDays"] = lookback

	allSuccess := true
	for _, projectId := range projectIds {
		logCtx := log.WithFields(log.Fields{"job_name": jobName, "project_id": projectId})
		logCtx.Info("processing")

		status, isSuccess := f(projectId, configs)
		projectKey := fmt.Sprintf("%v", projectId)
		finalStatus[projectKey] = status
		finalStatus["Status"+projectKey] = isSuccess
		if isSuccess == false {
			logCtx.Error("processing failed")
			allSuccess = false
			continue
		}
		logCtx.Info("processing success")
	}
	finalStatus["Status"] = allSuccess
	return finalStatus
}

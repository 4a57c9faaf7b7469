package main

import (
	"flag"
	"fmt"

	C "journeylens/config"
	"journeylens/model/model"
	"journeylens/task"
	taskWrapper "journeylens/task/task_wrapper"
	U "journeylens/util"

	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", C.DEVELOPMENT, "")
	projectIDList := flag.String("project_ids", "", "Comma separated project ids to evaluate.")
	domain := flag.String("domain", model.ALERT_DOMAIN_JOURNEYS, "Alert domain as journeys or funnels.")

	memSQLHost := flag.String("memsql_host", C.MemSQLDefaultDBParams.Host, "")
	memSQLPort := flag.Int("memsql_port", C.MemSQLDefaultDBParams.Port, "")
	memSQLUser := flag.String("memsql_user", C.MemSQLDefaultDBParams.User, "")
	memSQLName := flag.String("memsql_name", C.MemSQLDefaultDBParams.Name, "")
	memSQLPass := flag.String("memsql_pass", C.MemSQLDefaultDBParams.Password, "")
	memSQLCertificate := flag.String("memsql_cert", "", "")
	primaryDatastore := flag.String("primary_datastore", C.DatastoreTypeMemSQL, "Primary datastore type as memsql or memory")

	overrideHealthcheckPingID := flag.String("healthcheck_ping_id", "", "Override default healthcheck ping id.")

	flag.Parse()
	if *env != "development" &&
		*env != "staging" &&
		*env != "production" {
		err := fmt.Errorf("env [ %s ] not recognised", *env)
		panic(err)
	}
	defer U.NotifyOnPanic("Script#run_alert_evaluator", *env)
	appName := "run_alert_evaluator"
	config := &C.Configuration{
		AppName: appName,
		Env:     *env,
		MemSQLInfo: C.DBConf{
			Host:        *memSQLHost,
			Port:        *memSQLPort,
			User:        *memSQLUser,
			Name:        *memSQLName,
			Password:    *memSQLPass,
			Certificate: *memSQLCertificate,
			AppName:     appName,
		},
		PrimaryDatastore: *primaryDatastore,
	}
	healthcheckPingID := C.GetHealthcheckPingID(C.HealthcheckAlertEvaluatorPingID, *overrideHealthcheckPingID)
	C.InitConf(config)
	err := C.InitDB(*config)
	if err != nil {
		log.Fatal("Init failed.")
	}
	if db := C.GetServices().Db; db != nil {
		defer db.Close()
	}

	projectIdsArray := U.GetInt64ListFromStringList(projectIDList)
	if len(projectIdsArray) == 0 {
		log.Fatal("No project ids given. Use --project_ids.")
	}

	configs := make(map[string]interface{})
	configs["domain"] = *domain
	status := taskWrapper.TaskFuncWithProjectId("EvaluateAlertDefinitions", 1,
		projectIdsArray, task.EvaluateAlertDefinitions, configs)
	log.Info(status)
	if allSuccess, _ := status["Status"].(bool); !allSuccess {
		C.PingHealthcheckForFailure(healthcheckPingID, status)
		return
	}
	C.PingHealthcheckForSuccess(healthcheckPingID, status)
}

package main

import (
	"flag"
	"fmt"

	C "journeylens/config"
	"journeylens/task"
	taskWrapper "journeylens/task/task_wrapper"
	U "journeylens/util"

	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", C.DEVELOPMENT, "")
	projectIDList := flag.String("project_ids", "", "Comma separated project ids to aggregate.")

	memSQLHost := flag.String("memsql_host", C.MemSQLDefaultDBParams.Host, "")
	memSQLPort := flag.Int("memsql_port", C.MemSQLDefaultDBParams.Port, "")
	memSQLUser := flag.String("memsql_user", C.MemSQLDefaultDBParams.User, "")
	memSQLName := flag.String("memsql_name", C.MemSQLDefaultDBParams.Name, "")
	memSQLPass := flag.String("memsql_pass", C.MemSQLDefaultDBParams.Password, "")
	memSQLCertificate := flag.String("memsql_cert", "", "")
	primaryDatastore := flag.String("primary_datastore", C.DatastoreTypeMemSQL, "Primary datastore type as memsql or memory")

	redisHost := flag.String("redis_host", "", "")
	redisPort := flag.Int("redis_port", 6379, "")
	useTaskLock := flag.Bool("use_task_lock", false, "Serialize rollup units through redis locks.")

	lookback := flag.Int("lookback", task.DefaultAggregateLookbackDays, "Trailing days to rebuild.")
	overrideHealthcheckPingID := flag.String("healthcheck_ping_id", "", "Override default healthcheck ping id.")

	flag.Parse()
	if *env != "development" &&
		*env != "staging" &&
		*env != "production" {
		err := fmt.Errorf("env [ %s ] not recognised", *env)
		panic(err)
	}
	defer U.NotifyOnPanic("Script#run_daily_journey_aggregates", *env)
	appName := "run_daily_journey_aggregates"
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
		RedisHost:        *redisHost,
		RedisPort:        *redisPort,
		UseTaskLock:      *useTaskLock,
	}
	healthcheckPingID := C.GetHealthcheckPingID(C.HealthcheckJourneyAggregatesPingID, *overrideHealthcheckPingID)
	C.InitConf(config)
	err := C.InitDB(*config)
	if err != nil {
		log.Fatal("Init failed.")
	}
	C.InitRedis(config.RedisHost, config.RedisPort)
	if db := C.GetServices().Db; db != nil {
		defer db.Close()
	}

	projectIdsArray := U.GetInt64ListFromStringList(projectIDList)
	if len(projectIdsArray) == 0 {
		log.Fatal("No project ids given. Use --project_ids.")
	}

	configs := make(map[string]interface{})
	status := taskWrapper.TaskFuncWithProjectId("DailyJourneyAggregates", *lookback,
		projectIdsArray, task.RunDailyJourneyAggregates, configs)
	log.Info(status)
	if allSuccess, _ := status["Status"].(bool); !allSuccess {
		C.PingHealthcheckForFailure(healthcheckPingID, status)
		return
	}
	C.PingHealthcheckForSuccess(healthcheckPingID, status)
}

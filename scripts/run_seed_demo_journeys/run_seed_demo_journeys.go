package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"net/http"

	C "journeylens/config"
	"journeylens/model/model"
	"journeylens/model/store"
	U "journeylens/util"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// Loads a YAML journey fixture into the conversion paths table so the
// pipeline and evaluator have data to chew on in development.

type seedFixture struct {
	ProjectID   int64            `yaml:"project_id"`
	Definitions []seedDefinition `yaml:"definitions"`
	Journeys    []seedJourney    `yaml:"journeys"`
}

type seedDefinition struct {
	Name     string       `yaml:"name"`
	Settings seedSettings `yaml:"settings"`
}

type seedSettings struct {
	ConversionEvent string `yaml:"conversion_event"`
	MaxPathSteps    int    `yaml:"max_path_steps"`
	ReprocessDays   int    `yaml:"reprocess_days"`
}

type seedTouchpoint struct {
	Channel   string `yaml:"channel"`
	Campaign  string `yaml:"campaign"`
	EventName string `yaml:"event_name"`
	Timestamp string `yaml:"timestamp"`
}

type seedJourney struct {
	Definition      string           `yaml:"definition"`
	ProfileID       string           `yaml:"profile_id"`
	Device          string           `yaml:"device"`
	Country         string           `yaml:"country"`
	Converted       *bool            `yaml:"converted"`
	ConversionValue float64          `yaml:"conversion_value"`
	Touchpoints     []seedTouchpoint `yaml:"touchpoints"`
}

func main() {
	env := flag.String("env", C.DEVELOPMENT, "")
	projectIDFlag := flag.Int64("project_id", 0, "Project to seed. Overrides the fixture's project_id.")
	fixtureFile := flag.String("fixture", "demo_journeys.yaml", "Path of the YAML journey fixture.")

	memSQLHost := flag.String("memsql_host", C.MemSQLDefaultDBParams.Host, "")
	memSQLPort := flag.Int("memsql_port", C.MemSQLDefaultDBParams.Port, "")
	memSQLUser := flag.String("memsql_user", C.MemSQLDefaultDBParams.User, "")
	memSQLName := flag.String("memsql_name", C.MemSQLDefaultDBParams.Name, "")
	memSQLPass := flag.String("memsql_pass", C.MemSQLDefaultDBParams.Password, "")
	memSQLCertificate := flag.String("memsql_cert", "", "")
	primaryDatastore := flag.String("primary_datastore", C.DatastoreTypeMemSQL, "Primary datastore type as memsql or memory")

	flag.Parse()
	if *env != "development" &&
		*env != "staging" &&
		*env != "production" {
		err := fmt.Errorf("env [ %s ] not recognised", *env)
		panic(err)
	}
	defer U.NotifyOnPanic("Script#run_seed_demo_journeys", *env)
	appName := "run_seed_demo_journeys"
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
	C.InitConf(config)
	err := C.InitDB(*config)
	if err != nil {
		log.Fatal("Init failed.")
	}
	if db := C.GetServices().Db; db != nil {
		defer db.Close()
	}

	fileContents, err := ioutil.ReadFile(*fixtureFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to read fixture file.")
	}
	var fixture seedFixture
	if err := yaml.Unmarshal(fileContents, &fixture); err != nil {
		log.WithError(err).Fatal("Failed to parse fixture file.")
	}
	projectID := fixture.ProjectID
	if *projectIDFlag != 0 {
		projectID = *projectIDFlag
	}
	if projectID == 0 {
		log.Fatal("No project id in fixture or flags.")
	}

	definitionIDsByName := seedDefinitions(projectID, fixture.Definitions)
	seeded := seedJourneys(projectID, definitionIDsByName, fixture.Journeys)
	log.WithFields(log.Fields{"project_id": projectID, "definitions": len(definitionIDsByName),
		"journeys": seeded}).Info("Seeded demo journeys.")
}

// seedDefinitions creates the fixture's definitions that do not exist
// yet, matched by name, and returns name to id for the journey rows.
func seedDefinitions(projectID int64, seeds []seedDefinition) map[string]int64 {
	definitionIDsByName := make(map[string]int64)

	existing, errCode := store.GetStore().GetActiveJourneyDefinitions(projectID)
	if errCode == http.StatusFound {
		for i := range existing {
			definitionIDsByName[existing[i].Name] = existing[i].ID
		}
	}

	for _, seed := range seeds {
		if _, exists := definitionIDsByName[seed.Name]; exists {
			continue
		}
		definition := model.JourneyDefinition{
			Name:   seed.Name,
			Status: model.JourneyDefinitionStatusActive,
		}
		settings := model.JourneyDefinitionSettings{
			ConversionEvent: seed.Settings.ConversionEvent,
			MaxPathSteps:    seed.Settings.MaxPathSteps,
			ReprocessDays:   seed.Settings.ReprocessDays,
		}
		settingsJsonb, err := U.EncodeStructTypeToPostgresJsonb(&settings)
		if err != nil {
			log.WithField("name", seed.Name).WithError(err).Fatal("Failed to encode definition settings.")
		}
		definition.Settings = settingsJsonb

		created, errCode := store.GetStore().CreateJourneyDefinition(projectID, &definition)
		if errCode != http.StatusCreated {
			log.WithFields(log.Fields{"name": seed.Name, "err_code": errCode}).
				Fatal("Failed to create journey definition.")
		}
		definitionIDsByName[seed.Name] = created.ID
	}
	return definitionIDsByName
}

func seedJourneys(projectID int64, definitionIDsByName map[string]int64, seeds []seedJourney) int {
	seeded := 0
	for _, seed := range seeds {
		definitionID, exists := definitionIDsByName[seed.Definition]
		if !exists {
			log.WithField("definition", seed.Definition).
				Fatal("Journey references a definition missing from the fixture.")
		}

		journey := model.Journey{
			CustomerID:      seed.ProfileID,
			Converted:       true,
			ConversionValue: seed.ConversionValue,
		}
		if seed.Converted != nil {
			journey.Converted = *seed.Converted
		}
		for _, touchpoint := range seed.Touchpoints {
			journey.Touchpoints = append(journey.Touchpoints, model.Touchpoint{
				Channel:   touchpoint.Channel,
				Campaign:  touchpoint.Campaign,
				EventName: touchpoint.EventName,
				Timestamp: touchpoint.Timestamp,
			})
		}

		conversionPath := model.ConversionPath{
			JourneyDefinitionID: definitionID,
			ProfileID:           seed.ProfileID,
			Device:              seed.Device,
			Country:             seed.Country,
			ConversionTimestamp: resolveConversionTimestamp(&journey),
		}
		if err := conversionPath.SetJourney(&journey); err != nil {
			log.WithError(err).Fatal("Failed to encode journey payload.")
		}
		if _, errCode := store.GetStore().CreateConversionPath(projectID, &conversionPath); errCode != http.StatusCreated {
			log.WithFields(log.Fields{"profile_id": seed.ProfileID, "err_code": errCode}).
				Fatal("Failed to create conversion path.")
		}
		seeded++
	}
	return seeded
}

// resolveConversionTimestamp keys the record by its conversion moment,
// falling back to now when no touchpoint timestamp parses.
func resolveConversionTimestamp(journey *model.Journey) int64 {
	if conversionTime, ok := journey.ConversionTime(); ok {
		return conversionTime.Unix()
	}
	return U.TimeNowUnix()
}

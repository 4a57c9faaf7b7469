package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// sends email notification to the team.
const url_SNS_TOPIC = "https://api.journeylens.io/v1/notify"

// NotifyThroughSNS - Send email notification to the team.
func NotifyThroughSNS(source, env string, message interface{}) error {
	if env != "staging" && env != "production" && env != "development" {
		return fmt.Errorf("nofitication skipped for env %s", env)
	}

	body := map[string]interface{}{
		"source":  source,
		"env":     env,
		"message": message,
	}
	jsonBody, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	if env == "development" {
		fmt.Print("-- Notification Template -- \n\n")
		fmt.Println(string(jsonBody))
		return nil
	}

	req, err := http.NewRequest("POST", url_SNS_TOPIC, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	} else if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sns return non 200 status: %d", resp.StatusCode)
	}
	defer resp.Body.Close()

	return nil
}

// NotifyOnPanic recovers a panic on the deferred path of a script,
// notifies the team and logs instead of crashing silently.
func NotifyOnPanic(source, env string) {
	if recovered := recover(); recovered != nil {
		log.WithFields(log.Fields{"source": source, "env": env,
			"panic": recovered}).Error("Recovered from panic.")
		if err := NotifyThroughSNS(source, env, fmt.Sprintf("%v", recovered)); err != nil {
			log.WithError(err).Error("Failed to notify recovered panic.")
		}
	}
}

// NotifyOnPanicWithError is the in-process variant keyed by app name,
// for workers that recover per unit of work.
func NotifyOnPanicWithError(env, appName string) {
	if recovered := recover(); recovered != nil {
		log.WithFields(log.Fields{"env": env, "app_name": appName,
			"panic": recovered}).Error("Recovered from panic.")
		if err := NotifyThroughSNS(appName, env, fmt.Sprintf("%v", recovered)); err != nil {
			log.WithError(err).Error("Failed to notify recovered panic.")
		}
	}
}

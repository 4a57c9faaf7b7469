package error_collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Collector forwards error level log entries to the team notification
// endpoint, deduped by message within the mute window so a hot error
// loop cannot flood the channel.
type Collector struct {
	env        string
	appName    string
	endpoint   string
	muteWindow time.Duration
	client     *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func New(env, appName string) *Collector {
	return &Collector{
		env:        env,
		appName:    appName,
		endpoint:   "https://api.journeylens.io/v1/notify",
		muteWindow: 15 * time.Minute,
		client:     &http.Client{Timeout: 10 * time.Second},
		lastSent:   make(map[string]time.Time),
	}
}

// Notice posts one entry. Runs on the logging path, so failures are
// swallowed and never logged.
func (c *Collector) Notice(entry *logrus.Entry) {
	if c == nil || entry == nil {
		return
	}

	c.mu.Lock()
	if sentAt, exists := c.lastSent[entry.Message]; exists && time.Since(sentAt) < c.muteWindow {
		c.mu.Unlock()
		return
	}
	c.lastSent[entry.Message] = time.Now()
	c.mu.Unlock()

	fields := make(map[string]string, len(entry.Data))
	for key, value := range entry.Data {
		fields[key] = fmt.Sprintf("%v", value)
	}
	body := map[string]interface{}{
		"source":  fmt.Sprintf("%s-%s", c.appName, c.env),
		"env":     c.env,
		"level":   entry.Level.String(),
		"message": entry.Message,
		"fields":  fields,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}

	response, err := c.client.Post(c.endpoint, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return
	}
	response.Body.Close()
}

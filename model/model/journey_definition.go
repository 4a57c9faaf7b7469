package model

import (
	"time"

	"github.com/jinzhu/gorm/dialects/postgres"
	"github.com/pkg/errors"

	U "journeylens/util"
)

const (
	JourneyDefinitionStatusActive   = "active"
	JourneyDefinitionStatusDisabled = "disabled"
)

// JourneyDefinition scopes journey processing for one project: which
// conversion the paths lead to and how the rollup pipeline should cap
// canonical sequences. Rollup rows and alerts hang off its ID.
type JourneyDefinition struct {
	ID        int64           `gorm:"column:id; primary_key:true" json:"id"`
	ProjectID int64           `gorm:"column:project_id; primary_key:true" json:"project_id"`
	Name      string          `gorm:"column:name; not null" json:"name"`
	Status    string          `gorm:"column:status; not null; default:'active'" json:"status"`
	Settings  *postgres.Jsonb `gorm:"column:settings" json:"settings"`
	CreatedAt time.Time       `gorm:"column:created_at; autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at; autoUpdateTime" json:"updated_at"`
}

func (JourneyDefinition) TableName() string {
	return "journey_definitions"
}

// JourneyDefinitionSettings is the settings payload. Zero values fall
// back to the pipeline defaults at read time.
type JourneyDefinitionSettings struct {
	ConversionEvent string `json:"conversion_event"`
	MaxPathSteps    int    `json:"max_path_steps"`
	ReprocessDays   int    `json:"reprocess_days"`
}

// GetSettings decodes the settings payload, returning defaults for an
// empty column.
func (definition *JourneyDefinition) GetSettings() (JourneyDefinitionSettings, error) {
	settings := JourneyDefinitionSettings{MaxPathSteps: MaxPathSteps}
	if U.IsEmptyPostgresJsonb(definition.Settings) {
		return settings, nil
	}
	if err := U.DecodePostgresJsonbToStructType(definition.Settings, &settings); err != nil {
		return settings, errors.Wrap(err, "failed to decode journey definition settings")
	}
	if settings.MaxPathSteps <= 0 {
		settings.MaxPathSteps = MaxPathSteps
	}
	return settings, nil
}

// IsActive reports whether the pipeline and evaluator should process
// this definition.
func (definition *JourneyDefinition) IsActive() bool {
	return definition.Status == JourneyDefinitionStatusActive
}

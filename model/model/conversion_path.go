package model

import (
	"time"

	"github.com/jinzhu/gorm/dialects/postgres"
	"github.com/pkg/errors"

	U "journeylens/util"
)

// ConversionPath is one raw journey record keyed by its conversion
// timestamp. The touchpoint sequence and outcome live in the payload;
// device and country ride along as rollup dimension tags.
type ConversionPath struct {
	ID                  string          `gorm:"column:id; type:uuid" json:"id"`
	ProjectID           int64           `gorm:"column:project_id; primary_key:true" json:"project_id"`
	JourneyDefinitionID int64           `gorm:"column:journey_definition_id; not null" json:"journey_definition_id"`
	ProfileID           string          `gorm:"column:profile_id" json:"profile_id"`
	ConversionTimestamp int64           `gorm:"column:conversion_timestamp; not null" json:"conversion_timestamp"`
	PathPayload         *postgres.Jsonb `gorm:"column:path_payload" json:"path_payload"`
	Device              string          `gorm:"column:device" json:"device"`
	Country             string          `gorm:"column:country" json:"country"`
	CreatedAt           time.Time       `gorm:"column:created_at; autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at; autoUpdateTime" json:"updated_at"`
}

func (ConversionPath) TableName() string {
	return "conversion_paths"
}

// GetJourney decodes the path payload into the journey it records.
func (conversionPath *ConversionPath) GetJourney() (Journey, error) {
	var journey Journey
	if U.IsEmptyPostgresJsonb(conversionPath.PathPayload) {
		return journey, errors.New("empty conversion path payload")
	}
	if err := U.DecodePostgresJsonbToStructType(conversionPath.PathPayload, &journey); err != nil {
		return journey, errors.Wrap(err, "failed to decode conversion path payload")
	}
	return journey, nil
}

// SetJourney encodes the journey into the path payload column.
func (conversionPath *ConversionPath) SetJourney(journey *Journey) error {
	payload, err := U.EncodeStructTypeToPostgresJsonb(journey)
	if err != nil {
		return errors.Wrap(err, "failed to encode conversion path payload")
	}
	conversionPath.PathPayload = payload
	return nil
}

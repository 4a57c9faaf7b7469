package model

import (
	"encoding/json"
	"testing"

	"github.com/jinzhu/gorm/dialects/postgres"
	"github.com/stretchr/testify/assert"
)

func TestConversionPathJourneyPayload(t *testing.T) {
	journey := Journey{
		CustomerID: "u1",
		Touchpoints: []Touchpoint{
			{Channel: "google", Campaign: "brand", Timestamp: "2026-03-10T10:00:00Z"},
			{Channel: "email", EventName: "checkout_submit"},
		},
		Converted:       true,
		ConversionValue: 149.5,
	}

	conversionPath := ConversionPath{JourneyDefinitionID: 7, ConversionTimestamp: 1000}
	assert.Nil(t, conversionPath.SetJourney(&journey))

	decoded, err := conversionPath.GetJourney()
	assert.Nil(t, err)
	assert.Equal(t, "u1", decoded.CustomerID)
	assert.Equal(t, 2, len(decoded.Touchpoints))
	assert.Equal(t, "brand", decoded.Touchpoints[0].Campaign)
	assert.Equal(t, "checkout_submit", decoded.Touchpoints[1].EventName)
	assert.True(t, decoded.Converted)
	assert.Equal(t, 149.5, decoded.ConversionValue)
}

func TestConversionPathGetJourneyErrors(t *testing.T) {
	conversionPath := ConversionPath{JourneyDefinitionID: 7}
	_, err := conversionPath.GetJourney()
	assert.NotNil(t, err)

	conversionPath.PathPayload = &postgres.Jsonb{RawMessage: json.RawMessage(`{"touchpoints": 5}`)}
	_, err = conversionPath.GetJourney()
	assert.NotNil(t, err)
}

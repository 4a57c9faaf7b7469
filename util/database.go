package util

import (
	"encoding/json"

	"github.com/jinzhu/gorm/dialects/postgres"
	"github.com/pkg/errors"
)

func IsEmptyPostgresJsonb(jsonb *postgres.Jsonb) bool {
	return jsonb == nil || string((*jsonb).RawMessage) == ""
}

// DecodePostgresJsonbToStructType Decodes a jsonb column payload into the given struct pointer.
func DecodePostgresJsonbToStructType(sourceJsonb *postgres.Jsonb, structObject interface{}) error {
	if IsEmptyPostgresJsonb(sourceJsonb) {
		return errors.New("empty jsonb object")
	}
	return json.Unmarshal(sourceJsonb.RawMessage, structObject)
}

// EncodeStructTypeToPostgresJsonb Encodes any struct into a jsonb column payload.
func EncodeStructTypeToPostgresJsonb(structObject interface{}) (*postgres.Jsonb, error) {
	objectBytes, err := json.Marshal(structObject)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal struct to jsonb")
	}
	return &postgres.Jsonb{RawMessage: json.RawMessage(objectBytes)}, nil
}

package store

import (
	C "journeylens/config"
	"journeylens/model"
	storeMemory "journeylens/model/store/memory"
	storeMemSQL "journeylens/model/store/memsql"
)

// GetStore - Decides on which model implementation to use by
// configuration and returns the store.
func GetStore() model.Model {
	if C.GetConfig().PrimaryDatastore == C.DatastoreTypeMemory {
		return storeMemory.GetInstance()
	}
	return &storeMemSQL.MemSQL{}
}

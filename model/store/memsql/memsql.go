package memsql

// MemSQL implements the model interface on the primary MemSQL
// datastore. Methods reach the shared gorm handle through the
// configured services.
type MemSQL struct {
}

package memory

import (
	"net/http"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"journeylens/model/model"
	U "journeylens/util"
)

// Memory implements the model interface on in-process maps, with the
// same semantics and status codes as the MemSQL store. It backs tests
// and local runs where no database is reachable. One mutex guards all
// state, which also gives the rollup rewrite its transactional
// boundary.
type Memory struct {
	mu sync.Mutex

	journeyDefinitions map[int64]map[int64]model.JourneyDefinition
	nextDefinitionID   int64

	conversionPaths map[int64][]model.ConversionPath

	pathDaily       map[int64][]model.PathDaily
	transitionDaily map[int64][]model.TransitionDaily

	alertDefinitions map[int64]map[string]model.AlertDefinition
	alertEvents      map[int64][]model.AlertEvent
}

var (
	instance     *Memory
	instanceOnce sync.Once
)

// GetInstance returns the process-wide store used when the primary
// datastore is configured as memory.
func GetInstance() *Memory {
	instanceOnce.Do(func() {
		instance = New()
	})
	return instance
}

// New returns an isolated empty store.
func New() *Memory {
	return &Memory{
		journeyDefinitions: make(map[int64]map[int64]model.JourneyDefinition),
		conversionPaths:    make(map[int64][]model.ConversionPath),
		pathDaily:          make(map[int64][]model.PathDaily),
		transitionDaily:    make(map[int64][]model.TransitionDaily),
		alertDefinitions:   make(map[int64]map[string]model.AlertDefinition),
		alertEvents:        make(map[int64][]model.AlertEvent),
	}
}

func (store *Memory) CreateJourneyDefinition(projectID int64, definition *model.JourneyDefinition) (*model.JourneyDefinition, int) {
	if projectID == 0 || definition == nil || definition.Name == "" {
		return nil, http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	definition.ProjectID = projectID
	if definition.ID == 0 {
		store.nextDefinitionID++
		definition.ID = store.nextDefinitionID
	}
	if definition.Status == "" {
		definition.Status = model.JourneyDefinitionStatusActive
	}
	definition.CreatedAt = time.Now().UTC()
	definition.UpdatedAt = definition.CreatedAt

	if _, exists := store.journeyDefinitions[projectID]; !exists {
		store.journeyDefinitions[projectID] = make(map[int64]model.JourneyDefinition)
	}
	store.journeyDefinitions[projectID][definition.ID] = *definition
	return definition, http.StatusCreated
}

func (store *Memory) GetJourneyDefinition(projectID, definitionID int64) (*model.JourneyDefinition, int) {
	store.mu.Lock()
	defer store.mu.Unlock()

	definition, exists := store.journeyDefinitions[projectID][definitionID]
	if !exists {
		return nil, http.StatusNotFound
	}
	return &definition, http.StatusFound
}

func (store *Memory) GetActiveJourneyDefinitions(projectID int64) ([]model.JourneyDefinition, int) {
	store.mu.Lock()
	defer store.mu.Unlock()

	definitions := make([]model.JourneyDefinition, 0)
	for _, definition := range store.journeyDefinitions[projectID] {
		if definition.IsActive() {
			definitions = append(definitions, definition)
		}
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].ID < definitions[j].ID
	})
	return definitions, http.StatusFound
}

func (store *Memory) UpdateJourneyDefinitionStatus(projectID, definitionID int64, status string) int {
	validStatuses := []string{model.JourneyDefinitionStatusActive, model.JourneyDefinitionStatusDisabled}
	if !U.StringValueIn(status, validStatuses) {
		return http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	definition, exists := store.journeyDefinitions[projectID][definitionID]
	if !exists {
		return http.StatusNotFound
	}
	definition.Status = status
	definition.UpdatedAt = time.Now().UTC()
	store.journeyDefinitions[projectID][definitionID] = definition
	return http.StatusAccepted
}

func (store *Memory) CreateConversionPath(projectID int64, conversionPath *model.ConversionPath) (*model.ConversionPath, int) {
	if projectID == 0 || conversionPath == nil {
		return nil, http.StatusBadRequest
	}
	if conversionPath.JourneyDefinitionID == 0 || conversionPath.ConversionTimestamp <= 0 {
		return nil, http.StatusBadRequest
	}
	if U.IsEmptyPostgresJsonb(conversionPath.PathPayload) {
		return nil, http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	conversionPath.ProjectID = projectID
	if conversionPath.ID == "" {
		conversionPath.ID = U.GetUUID()
	}
	conversionPath.CreatedAt = time.Now().UTC()
	conversionPath.UpdatedAt = conversionPath.CreatedAt

	store.conversionPaths[projectID] = append(store.conversionPaths[projectID], *conversionPath)
	return conversionPath, http.StatusCreated
}

func (store *Memory) GetConversionPathsForRange(projectID, definitionID int64, from, to int64) ([]model.ConversionPath, int) {
	if projectID == 0 || definitionID == 0 || from > to {
		return nil, http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	conversionPaths := make([]model.ConversionPath, 0)
	for _, conversionPath := range store.conversionPaths[projectID] {
		if conversionPath.JourneyDefinitionID != definitionID {
			continue
		}
		if conversionPath.ConversionTimestamp < from || conversionPath.ConversionTimestamp > to {
			continue
		}
		conversionPaths = append(conversionPaths, conversionPath)
	}
	sort.Slice(conversionPaths, func(i, j int) bool {
		return conversionPaths[i].ConversionTimestamp < conversionPaths[j].ConversionTimestamp
	})
	return conversionPaths, http.StatusFound
}

func (store *Memory) GetJourneysForRange(projectID, definitionID int64, from, to int64) ([]model.Journey, int) {
	conversionPaths, errCode := store.GetConversionPathsForRange(projectID, definitionID, from, to)
	if errCode != http.StatusFound {
		return nil, errCode
	}

	journeys := make([]model.Journey, 0, len(conversionPaths))
	for i := range conversionPaths {
		journey, err := conversionPaths[i].GetJourney()
		if err != nil {
			log.WithFields(log.Fields{"project_id": projectID,
				"conversion_path_id": conversionPaths[i].ID}).WithError(err).
				Warn("Skipping conversion path with bad payload.")
			continue
		}
		journeys = append(journeys, journey)
	}
	return journeys, http.StatusFound
}

func (store *Memory) ReplaceJourneyRollupsForDay(projectID int64, dateKey uint64, definitionID int64,
	pathRows []model.PathDaily, transitionRows []model.TransitionDaily) int {
	if projectID == 0 || dateKey == 0 || definitionID == 0 {
		return http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	keptPaths := make([]model.PathDaily, 0, len(store.pathDaily[projectID]))
	for _, row := range store.pathDaily[projectID] {
		if row.DateKey == dateKey && row.JourneyDefinitionID == definitionID {
			continue
		}
		keptPaths = append(keptPaths, row)
	}
	keptTransitions := make([]model.TransitionDaily, 0, len(store.transitionDaily[projectID]))
	for _, row := range store.transitionDaily[projectID] {
		if row.DateKey == dateKey && row.JourneyDefinitionID == definitionID {
			continue
		}
		keptTransitions = append(keptTransitions, row)
	}

	createdAt := time.Now().UTC()
	for i := range pathRows {
		row := pathRows[i]
		row.ProjectID = projectID
		row.DateKey = dateKey
		row.JourneyDefinitionID = definitionID
		if row.ID == "" {
			row.ID = U.GetUUID()
		}
		row.CreatedAt = createdAt
		keptPaths = append(keptPaths, row)
	}
	for i := range transitionRows {
		row := transitionRows[i]
		row.ProjectID = projectID
		row.DateKey = dateKey
		row.JourneyDefinitionID = definitionID
		if row.ID == "" {
			row.ID = U.GetUUID()
		}
		row.CreatedAt = createdAt
		keptTransitions = append(keptTransitions, row)
	}

	store.pathDaily[projectID] = keptPaths
	store.transitionDaily[projectID] = keptTransitions
	return http.StatusCreated
}

func matchesScopeDimensions(scope *model.AlertScope, pathHash, channelGroup, device, country string) bool {
	if scope == nil {
		return true
	}
	if scope.PathHash != "" && scope.PathHash != pathHash {
		return false
	}
	if scope.ChannelGroup != "" && scope.ChannelGroup != channelGroup {
		return false
	}
	if scope.Device != "" && scope.Device != device {
		return false
	}
	if scope.Country != "" && scope.Country != country {
		return false
	}
	return true
}

func (store *Memory) GetPathDailyRows(projectID, definitionID int64, fromDateKey, toDateKey uint64,
	scope *model.AlertScope) ([]model.PathDaily, int) {
	if projectID == 0 || definitionID == 0 || fromDateKey > toDateKey {
		return nil, http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	rows := make([]model.PathDaily, 0)
	for _, row := range store.pathDaily[projectID] {
		if row.JourneyDefinitionID != definitionID {
			continue
		}
		if row.DateKey < fromDateKey || row.DateKey > toDateKey {
			continue
		}
		if !matchesScopeDimensions(scope, row.PathHash, row.ChannelGroup, row.Device, row.Country) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DateKey != rows[j].DateKey {
			return rows[i].DateKey < rows[j].DateKey
		}
		return rows[i].PathHash < rows[j].PathHash
	})
	return rows, http.StatusFound
}

func (store *Memory) GetTransitionDailyRows(projectID, definitionID int64, fromDateKey, toDateKey uint64,
	scope *model.AlertScope) ([]model.TransitionDaily, int) {
	if projectID == 0 || definitionID == 0 || fromDateKey > toDateKey {
		return nil, http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	rows := make([]model.TransitionDaily, 0)
	for _, row := range store.transitionDaily[projectID] {
		if row.JourneyDefinitionID != definitionID {
			continue
		}
		if row.DateKey < fromDateKey || row.DateKey > toDateKey {
			continue
		}
		if !matchesScopeDimensions(scope, "", row.ChannelGroup, row.Device, row.Country) {
			continue
		}
		if scope != nil && scope.Step != "" && row.FromStep != scope.Step {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DateKey != rows[j].DateKey {
			return rows[i].DateKey < rows[j].DateKey
		}
		if rows[i].FromStep != rows[j].FromStep {
			return rows[i].FromStep < rows[j].FromStep
		}
		return rows[i].ToStep < rows[j].ToStep
	})
	return rows, http.StatusFound
}

func (store *Memory) CreateAlertDefinition(projectID int64, definition *model.AlertDefinition) (*model.AlertDefinition, int) {
	if projectID == 0 || definition == nil || definition.Name == "" {
		return nil, http.StatusBadRequest
	}
	if err := model.ValidateAlertDefinition(definition); err != nil {
		log.WithFields(log.Fields{"project_id": projectID}).WithError(err).Error("Invalid alert definition.")
		return nil, http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	definition.ProjectID = projectID
	if definition.ID == "" {
		definition.ID = U.GetUUID()
	}
	if definition.Schedule == "" {
		definition.Schedule = model.ALERT_SCHEDULE_DAILY
	}
	if definition.Status == "" {
		definition.Status = model.AlertStatusActive
	}
	definition.CreatedAt = time.Now().UTC()
	definition.UpdatedAt = definition.CreatedAt

	if _, exists := store.alertDefinitions[projectID]; !exists {
		store.alertDefinitions[projectID] = make(map[string]model.AlertDefinition)
	}
	store.alertDefinitions[projectID][definition.ID] = *definition
	return definition, http.StatusCreated
}

func (store *Memory) GetAlertDefinition(projectID int64, id string) (*model.AlertDefinition, int) {
	store.mu.Lock()
	defer store.mu.Unlock()

	definition, exists := store.alertDefinitions[projectID][id]
	if !exists {
		return nil, http.StatusNotFound
	}
	return &definition, http.StatusFound
}

func (store *Memory) GetActiveAlertDefinitions(projectID int64, domain string) ([]model.AlertDefinition, int) {
	if !U.StringValueIn(domain, model.ValidAlertDomains) {
		return nil, http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	definitions := make([]model.AlertDefinition, 0)
	for _, definition := range store.alertDefinitions[projectID] {
		if definition.Domain == domain && definition.Status == model.AlertStatusActive {
			definitions = append(definitions, definition)
		}
	}
	sort.Slice(definitions, func(i, j int) bool {
		if !definitions[i].CreatedAt.Equal(definitions[j].CreatedAt) {
			return definitions[i].CreatedAt.Before(definitions[j].CreatedAt)
		}
		return definitions[i].ID < definitions[j].ID
	})
	return definitions, http.StatusFound
}

func (store *Memory) UpdateAlertDefinitionStatus(projectID int64, id string, status string) int {
	validStatuses := []string{model.AlertStatusActive, model.AlertStatusDisabled}
	if !U.StringValueIn(status, validStatuses) {
		return http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	definition, exists := store.alertDefinitions[projectID][id]
	if !exists {
		return http.StatusNotFound
	}
	definition.Status = status
	definition.UpdatedAt = time.Now().UTC()
	store.alertDefinitions[projectID][id] = definition
	return http.StatusAccepted
}

func (store *Memory) CreateAlertEvent(projectID int64, event *model.AlertEvent) (*model.AlertEvent, int) {
	if projectID == 0 || event == nil || event.AlertDefinitionID == "" || event.FiredDate == 0 {
		return nil, http.StatusBadRequest
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	for _, existing := range store.alertEvents[projectID] {
		if existing.AlertDefinitionID == event.AlertDefinitionID && existing.FiredDate == event.FiredDate {
			return nil, http.StatusConflict
		}
	}

	event.ProjectID = projectID
	if event.ID == "" {
		event.ID = U.GetUUID()
	}
	event.CreatedAt = time.Now().UTC()

	store.alertEvents[projectID] = append(store.alertEvents[projectID], *event)
	return event, http.StatusCreated
}

func (store *Memory) GetAlertEventByDate(projectID int64, alertDefinitionID string, firedDate uint64) (*model.AlertEvent, int) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, event := range store.alertEvents[projectID] {
		if event.AlertDefinitionID == alertDefinitionID && event.FiredDate == firedDate {
			found := event
			return &found, http.StatusFound
		}
	}
	return nil, http.StatusNotFound
}

func (store *Memory) GetLastAlertEventBefore(projectID int64, alertDefinitionID string, beforeDate uint64) (*model.AlertEvent, int) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var last *model.AlertEvent
	for i := range store.alertEvents[projectID] {
		event := store.alertEvents[projectID][i]
		if event.AlertDefinitionID != alertDefinitionID || event.FiredDate >= beforeDate {
			continue
		}
		if last == nil || event.FiredDate > last.FiredDate {
			found := event
			last = &found
		}
	}
	if last == nil {
		return nil, http.StatusNotFound
	}
	return last, http.StatusFound
}

func (store *Memory) GetAlertEvents(projectID int64, alertDefinitionID string, limit int) ([]model.AlertEvent, int) {
	if limit <= 0 {
		limit = 100
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	events := make([]model.AlertEvent, 0)
	for _, event := range store.alertEvents[projectID] {
		if event.AlertDefinitionID == alertDefinitionID {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].FiredDate > events[j].FiredDate
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, http.StatusFound
}

func (store *Memory) ExecuteAttributionQuery(projectID int64, query *model.AttributionQuery) (*model.AttributionReport, int) {
	if projectID == 0 || query == nil {
		return nil, http.StatusBadRequest
	}
	if err := model.ValidateAttributionQuery(query); err != nil {
		return nil, http.StatusBadRequest
	}
	if query.JourneyDefinitionID == 0 || query.From <= 0 || query.To < query.From {
		return nil, http.StatusBadRequest
	}

	journeys, errCode := store.GetJourneysForRange(projectID, query.JourneyDefinitionID, query.From, query.To)
	if errCode != http.StatusFound {
		return nil, errCode
	}

	report, err := model.RunAttribution(journeys, query)
	if err != nil {
		return nil, http.StatusBadRequest
	}
	return report, http.StatusOK
}

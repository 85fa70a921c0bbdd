package hooks

import "sync"

type eventKey struct {
	collectionName string
	category       int32
}

// CronRegistration is one registered cron hook with its selection data.
type CronRegistration struct {
	JobName        string
	CollectionName string
	Selector       CronDocumentSelector
	Hook           CronDefaultIntervalHook
}

// Registry holds all registered hooks. Registration is expected at startup
// but is safe at any time; a registration is visible to requests that start
// after it.
type Registry struct {
	mu          sync.RWMutex
	createHooks map[string]DocumentCreatingHook
	updateHooks map[string]DocumentUpdatingHook
	eventHooks  map[eventKey]EventCreatingHook
	cronHooks   map[string]CronRegistration
	grantHooks  map[string]GrantHook
}

func NewRegistry() *Registry {
	return &Registry{
		createHooks: make(map[string]DocumentCreatingHook),
		updateHooks: make(map[string]DocumentUpdatingHook),
		eventHooks:  make(map[eventKey]EventCreatingHook),
		cronHooks:   make(map[string]CronRegistration),
		grantHooks:  make(map[string]GrantHook),
	}
}

// PutCreateHook registers hook for the collection, replacing any prior one.
func (r *Registry) PutCreateHook(collectionName string, hook DocumentCreatingHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createHooks[collectionName] = hook
}

func (r *Registry) GetCreateHook(collectionName string) DocumentCreatingHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.createHooks[collectionName]
}

// PutUpdateHook registers hook for the collection, replacing any prior one.
func (r *Registry) PutUpdateHook(collectionName string, hook DocumentUpdatingHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateHooks[collectionName] = hook
}

func (r *Registry) GetUpdateHook(collectionName string) DocumentUpdatingHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updateHooks[collectionName]
}

// PutEventHook registers hook for (collection, category), replacing any
// prior one.
func (r *Registry) PutEventHook(collectionName string, category int32, hook EventCreatingHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventHooks[eventKey{collectionName, category}] = hook
}

func (r *Registry) GetEventHook(collectionName string, category int32) EventCreatingHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.eventHooks[eventKey{collectionName, category}]
}

// PutCronHook registers a cron hook under its job name, replacing any prior
// registration of the same job.
func (r *Registry) PutCronHook(jobName, collectionName string, selector CronDocumentSelector, hook CronDefaultIntervalHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cronHooks[jobName] = CronRegistration{
		JobName:        jobName,
		CollectionName: collectionName,
		Selector:       selector,
		Hook:           hook,
	}
}

// CronHooks returns a snapshot of all cron registrations.
func (r *Registry) CronHooks() []CronRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CronRegistration, 0, len(r.cronHooks))
	for _, reg := range r.cronHooks {
		out = append(out, reg)
	}
	return out
}

// PutGrantHook registers the grants override for a collection.
func (r *Registry) PutGrantHook(collectionName string, hook GrantHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grantHooks[collectionName] = hook
}

func (r *Registry) GetGrantHook(collectionName string) GrantHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grantHooks[collectionName]
}

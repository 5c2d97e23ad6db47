package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
)

type InMemoryUserRepository struct {
	users map[string]*model.User
	mutex sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]*model.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.users[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, apperr.ErrNotFound
	}
	return user, nil
}

func (r *InMemoryUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.GoogleID == googleID {
			return user, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *InMemoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *InMemoryUserRepository) FindActive(ctx context.Context) ([]*model.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var users []*model.User
	for _, user := range r.users {
		if user.Active {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *InMemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		return apperr.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *InMemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.users, id)
	return nil
}

// Config repository implementation
type InMemoryConfigRepository struct {
	configs map[string]*model.UserConfig
	mutex   sync.RWMutex
}

func NewInMemoryConfigRepository() *InMemoryConfigRepository {
	return &InMemoryConfigRepository{
		configs: make(map[string]*model.UserConfig),
	}
}

func (r *InMemoryConfigRepository) Get(ctx context.Context, userID string) (*model.UserConfig, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cfg, exists := r.configs[userID]
	if !exists {
		return nil, apperr.ErrNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (r *InMemoryConfigRepository) Save(ctx context.Context, cfg *model.UserConfig) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	copied := *cfg
	r.configs[cfg.UserID] = &copied
	return nil
}

// Queue repository implementation
type InMemoryQueueRepository struct {
	items map[string]*model.QueueItem
	seen  map[string]string // user_id+gmail_id -> item id
	mutex sync.RWMutex
}

func NewInMemoryQueueRepository() *InMemoryQueueRepository {
	return &InMemoryQueueRepository{
		items: make(map[string]*model.QueueItem),
		seen:  make(map[string]string),
	}
}

func dedupKey(userID, gmailID string) string {
	return userID + "\x00" + gmailID
}

func (r *InMemoryQueueRepository) Create(ctx context.Context, item *model.QueueItem) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := dedupKey(item.UserID, item.GmailID)
	if _, exists := r.seen[key]; exists {
		return apperr.Dedup(item.GmailID)
	}
	clone := *item
	r.items[item.ID] = &clone
	r.seen[key] = item.ID
	return nil
}

// FindByID returns a copy so callers mutate a snapshot, not the stored
// row. Matches the row semantics of the Postgres implementation.
func (r *InMemoryQueueRepository) FindByID(ctx context.Context, id string) (*model.QueueItem, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, apperr.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (r *InMemoryQueueRepository) FindByUser(ctx context.Context, userID string, status model.QueueStatus) ([]*model.QueueItem, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.QueueItem
	for _, item := range r.items {
		if item.UserID != userID {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		clone := *item
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *InMemoryQueueRepository) Exists(ctx context.Context, userID, gmailID string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.seen[dedupKey(userID, gmailID)]
	return exists, nil
}

func (r *InMemoryQueueRepository) Update(ctx context.Context, item *model.QueueItem) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.items[item.ID]
	if !exists {
		return apperr.ErrNotFound
	}
	// Resolved items are immutable; a writer holding a stale pending
	// snapshot must not overwrite them.
	if existing.Status.Terminal() {
		return apperr.Validation("status", fmt.Sprintf("item is %s and cannot be updated", existing.Status))
	}
	clone := *item
	r.items[item.ID] = &clone
	return nil
}

// Activity repository implementation
type InMemoryActivityRepository struct {
	events []*model.ActivityEvent
	mutex  sync.RWMutex
}

func NewInMemoryActivityRepository() *InMemoryActivityRepository {
	return &InMemoryActivityRepository{}
}

func (r *InMemoryActivityRepository) Append(ctx context.Context, event *model.ActivityEvent) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.events = append(r.events, event)
	return nil
}

func (r *InMemoryActivityRepository) Recent(ctx context.Context, userID string, limit int) ([]*model.ActivityEvent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.ActivityEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].UserID != userID {
			continue
		}
		result = append(result, r.events[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Contact repository implementation
type InMemoryContactRepository struct {
	contacts map[string]*model.Contact // user_id+email -> contact
	mutex    sync.RWMutex
}

func NewInMemoryContactRepository() *InMemoryContactRepository {
	return &InMemoryContactRepository{
		contacts: make(map[string]*model.Contact),
	}
}

func contactKey(userID, email string) string {
	return userID + "\x00" + strings.ToLower(email)
}

func (r *InMemoryContactRepository) Upsert(ctx context.Context, contact *model.Contact) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.contacts[contactKey(contact.UserID, contact.Email)] = contact
	return nil
}

func (r *InMemoryContactRepository) FindByUser(ctx context.Context, userID string) ([]*model.Contact, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var result []*model.Contact
	for _, contact := range r.contacts {
		if contact.UserID == userID {
			result = append(result, contact)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MessageCount > result[j].MessageCount
	})
	return result, nil
}

func (r *InMemoryContactRepository) FindByEmail(ctx context.Context, userID, email string) (*model.Contact, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	contact, exists := r.contacts[contactKey(userID, email)]
	if !exists {
		return nil, apperr.ErrNotFound
	}
	return contact, nil
}

func (r *InMemoryContactRepository) Delete(ctx context.Context, userID, email string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := contactKey(userID, email)
	if _, exists := r.contacts[key]; !exists {
		return apperr.ErrNotFound
	}
	delete(r.contacts, key)
	return nil
}

func (r *InMemoryContactRepository) DeleteByUser(ctx context.Context, userID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key, contact := range r.contacts {
		if contact.UserID == userID {
			delete(r.contacts, key)
		}
	}
	return nil
}

// Voice profile repository implementation
type InMemoryProfileRepository struct {
	profiles map[string]*model.VoiceProfile
	mutex    sync.RWMutex
}

func NewInMemoryProfileRepository() *InMemoryProfileRepository {
	return &InMemoryProfileRepository{
		profiles: make(map[string]*model.VoiceProfile),
	}
}

func (r *InMemoryProfileRepository) Get(ctx context.Context, userID string) (*model.VoiceProfile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	profile, exists := r.profiles[userID]
	if !exists {
		return nil, apperr.ErrNotFound
	}
	return profile, nil
}

func (r *InMemoryProfileRepository) Save(ctx context.Context, profile *model.VoiceProfile) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.profiles[profile.UserID] = profile
	return nil
}

package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// --- Mock Provider -----------------------------------------------------------

type mockProvider struct {
	mu stdsync.Mutex
	id string

	// remote is the provider-side event list, returned in order.
	remote     []model.Event
	tombstones []string
	nextToken  string

	// fetchErr fails every fetch; expiredToken fails only incremental
	// fetches using that token, wrapping model.ErrExpiredSyncToken.
	fetchErr     error
	expiredToken string

	// failCreates lists titles whose CreateEvent call fails.
	failCreates map[string]bool

	nextID  int
	created []model.Event
	updated []model.Event
	deleted []string

	fetchTokens []string
}

func newMockProvider(events ...model.Event) *mockProvider {
	return &mockProvider{
		id:          "test-provider",
		remote:      events,
		failCreates: make(map[string]bool),
	}
}

func (m *mockProvider) ID() string   { return m.id }
func (m *mockProvider) Name() string { return "Test Provider" }

func (m *mockProvider) FetchEvents(_ context.Context, _ model.Window, syncToken string) (*model.Delta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchTokens = append(m.fetchTokens, syncToken)

	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if syncToken != "" && syncToken == m.expiredToken {
		return nil, fmt.Errorf("provider rejected token %q: %w", syncToken, model.ErrExpiredSyncToken)
	}

	events := make([]model.Event, len(m.remote))
	copy(events, m.remote)
	return &model.Delta{
		Events:     events,
		Tombstones: append([]string{}, m.tombstones...),
		NextToken:  m.nextToken,
	}, nil
}

func (m *mockProvider) CreateEvent(_ context.Context, ev model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreates[ev.Title] {
		return model.Event{}, fmt.Errorf("create %q rejected", ev.Title)
	}

	m.nextID++
	cp := ev
	cp.ID = fmt.Sprintf("remote-%d", m.nextID)
	m.created = append(m.created, cp)
	m.remote = append(m.remote, cp)
	return cp, nil
}

func (m *mockProvider) UpdateEvent(_ context.Context, id string, ev model.Event) (model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.remote {
		if r.ID == id {
			cp := ev
			cp.ID = id
			m.remote[i] = cp
			m.updated = append(m.updated, cp)
			return cp, nil
		}
	}
	return model.Event{}, fmt.Errorf("remote event %q not found", id)
}

func (m *mockProvider) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.remote {
		if r.ID == id {
			m.remote = append(m.remote[:i], m.remote[i+1:]...)
			m.deleted = append(m.deleted, id)
			return nil
		}
	}
	return fmt.Errorf("remote event %q not found", id)
}

func (m *mockProvider) Watch(_ context.Context, webhookURL string) (*model.Subscription, error) {
	return &model.Subscription{
		ID:         "sub-1",
		Resource:   webhookURL,
		Expiration: time.Now().Add(time.Hour),
	}, nil
}

func (m *mockProvider) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func (m *mockProvider) updatedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updated)
}

// --- Mock Event Store --------------------------------------------------------

type mockStore struct {
	mu     stdsync.Mutex
	events map[string]model.Event // providerID + "/" + eventID
	order  []string
	tokens map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{
		events: make(map[string]model.Event),
		tokens: make(map[string]string),
	}
}

func (m *mockStore) seed(providerID string, events ...model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		key := providerID + "/" + ev.ID
		if _, ok := m.events[key]; !ok {
			m.order = append(m.order, key)
		}
		m.events[key] = ev
	}
}

func (m *mockStore) ListEvents(_ context.Context, providerID string, _ model.Window) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.Event
	for _, key := range m.order {
		ev, ok := m.events[key]
		if !ok {
			continue
		}
		if key == providerID+"/"+ev.ID {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (m *mockStore) UpsertEvent(_ context.Context, providerID string, ev model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := providerID + "/" + ev.ID
	if _, ok := m.events[key]; !ok {
		m.order = append(m.order, key)
	}
	m.events[key] = ev
	return nil
}

func (m *mockStore) DeleteEvent(_ context.Context, providerID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, providerID+"/"+eventID)
	return nil
}

func (m *mockStore) SyncToken(_ context.Context, providerID, calendarID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[providerID+"/"+calendarID], nil
}

func (m *mockStore) SetSyncToken(_ context.Context, providerID, calendarID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[providerID+"/"+calendarID] = token
	return nil
}

func (m *mockStore) IsEmpty(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events) == 0, nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockStore) get(providerID, eventID string) (model.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[providerID+"/"+eventID]
	return ev, ok
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"homecare/portal/internal/models"
)

const DevUserID = "dev-user-1"

type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User
	carePlans  map[string]models.CarePlan
	requests   map[string][]models.ServiceRequest
	profiles   map[string]models.Profile
	interviews []models.Interview
	documents  map[string]models.Document
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]models.User),
		carePlans: make(map[string]models.CarePlan),
		requests:  make(map[string][]models.ServiceRequest),
		profiles:  make(map[string]models.Profile),
		documents: make(map[string]models.Document),
		now:       time.Now,
	}
}

// NewSeededMemoryStore returns a store holding the demo client and their
// care plan, requests and profile.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	seed(s)
	return s
}

func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) UpdateUserRole(_ context.Context, id string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	s.users[id] = u
	return nil
}

func (s *MemoryStore) ListCarePlans(_ context.Context, clientID string) ([]models.CarePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plans := make([]models.CarePlan, 0)
	for _, p := range s.carePlans {
		if clientID == "" || p.ClientID == clientID {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}

func (s *MemoryStore) GetCarePlan(_ context.Context, id string) (models.CarePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.carePlans[id]
	if !ok {
		return models.CarePlan{}, ErrCarePlanNotFound
	}
	return p, nil
}

func (s *MemoryStore) CreateServiceRequest(_ context.Context, req models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ClientID] = append(s.requests[req.ClientID], req)
	return nil
}

func (s *MemoryStore) ListServiceRequests(_ context.Context, clientID string) ([]models.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ServiceRequest, len(s.requests[clientID]))
	copy(out, s.requests[clientID])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

// UpdateProfile merges fields into the profile. Top-level contact fields are
// recognised by name; everything else lands in Fields.
func (s *MemoryStore) UpdateProfile(_ context.Context, userID string, fields map[string]any) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, ErrProfileNotFound
	}
	p = cloneProfile(p)
	applyProfileFields(&p, fields)
	p.UpdatedAt = s.now().UTC()
	s.profiles[userID] = p
	return cloneProfile(p), nil
}

func (s *MemoryStore) CreateInterview(_ context.Context, interview models.Interview) error {
	s.mu.Lock()
	s.interviews = append(s.interviews, interview)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SaveDocument(_ context.Context, doc models.Document) error {
	s.mu.Lock()
	s.documents[doc.ID] = doc
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func applyProfileFields(p *models.Profile, fields map[string]any) {
	if p.Fields == nil {
		p.Fields = make(map[string]any)
	}
	for k, v := range fields {
		str, isString := v.(string)
		switch {
		case k == "firstName" && isString:
			p.FirstName = str
		case k == "lastName" && isString:
			p.LastName = str
		case k == "email" && isString:
			p.Email = str
		case k == "phone" && isString:
			p.Phone = str
		default:
			p.Fields[k] = v
		}
	}
}

func cloneProfile(p models.Profile) models.Profile {
	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	p.Fields = fields
	return p
}

package account

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps profiles in process. Subject uniqueness relies on
// go-cache Add, which only inserts when the key is absent.
type MemoryStore struct {
	mu    sync.Mutex // guards read-modify-write in Update
	items *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, 0)}
}

func subjectKey(subject string) string { return "subject:" + subject }
func emailKey(email string) string     { return "email:" + strings.ToLower(email) }

func (s *MemoryStore) FindBySubject(_ context.Context, subject string) (*Profile, error) {
	v, ok := s.items.Get(subjectKey(subject))
	if !ok {
		return nil, ErrNotFound
	}
	p := v.(Profile)
	return &p, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	v, ok := s.items.Get(emailKey(email))
	if !ok {
		return nil, ErrNotFound
	}
	return s.FindBySubject(ctx, v.(string))
}

func (s *MemoryStore) Create(_ context.Context, p *Profile) (*Profile, error) {
	row := *p
	row.UserID = uuid.NewString()

	if err := s.items.Add(subjectKey(row.Subject), row, gocache.NoExpiration); err != nil {
		return nil, ErrDuplicateSubject
	}
	if err := s.items.Add(emailKey(row.Email), row.Subject, gocache.NoExpiration); err != nil {
		s.items.Delete(subjectKey(row.Subject))
		return nil, ErrEmailTaken
	}

	return &row, nil
}

func (s *MemoryStore) Update(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items.Get(subjectKey(p.Subject))
	if !ok {
		return ErrNotFound
	}

	row := v.(Profile)
	row.FullName = p.FullName
	row.GivenName = p.GivenName
	row.FamilyName = p.FamilyName
	row.BirthDate = p.BirthDate
	row.Phone = p.Phone
	row.LastLoginAt = p.LastLoginAt
	row.UpdatedAt = p.UpdatedAt

	return s.items.Replace(subjectKey(p.Subject), row, gocache.NoExpiration)
}

// Len reports the number of stored profiles.
func (s *MemoryStore) Len() int {
	n := 0
	for k := range s.items.Items() {
		if strings.HasPrefix(k, "subject:") {
			n++
		}
	}
	return n
}

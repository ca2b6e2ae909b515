// Package memory provides an in-process person and activity store for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"example.com/timereport/internal/domain"
	"example.com/timereport/internal/persistence"
)

// Store keeps persons in insertion order and activities in memory.
type Store struct {
	mu         sync.RWMutex
	persons    []domain.Person
	activities []domain.Activity
}

// NewStore constructs a store populated with the supplied records.
func NewStore(persons []domain.Person, activities []domain.Activity) *Store {
	s := &Store{}
	s.persons = append(s.persons, persons...)
	s.activities = append(s.activities, activities...)
	return s
}

// Fixture is the on-disk seed format: MongoDB Extended JSON with the users and
// activities collections side by side.
type Fixture struct {
	Users      []persistence.UserDocument     `bson:"users"`
	Activities []persistence.ActivityDocument `bson:"activities"`
}

// LoadFixture reads an Extended JSON fixture file into a new store.
func LoadFixture(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes Extended JSON fixture content into a new store.
func ParseFixture(data []byte) (*Store, error) {
	var fixture Fixture
	if err := bson.UnmarshalExtJSON(data, false, &fixture); err != nil {
		return nil, fmt.Errorf("%w: fixture: %w", domain.ErrSchemaDecode, err)
	}

	persons := make([]domain.Person, 0, len(fixture.Users))
	for _, u := range fixture.Users {
		persons = append(persons, u.ToPerson())
	}
	activities := make([]domain.Activity, 0, len(fixture.Activities))
	for _, a := range fixture.Activities {
		activities = append(activities, a.ToActivity())
	}
	return NewStore(persons, activities), nil
}

// AddPerson appends a person to the iteration order.
func (s *Store) AddPerson(person domain.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons = append(s.persons, person)
}

// AddActivity records an activity and its memberships.
func (s *Store) AddActivity(activity domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, activity)
}

// ForEachPerson implements report.PersonSource.
func (s *Store) ForEachPerson(ctx context.Context, fn func(domain.Person) error) error {
	s.mu.RLock()
	persons := make([]domain.Person, len(s.persons))
	copy(persons, s.persons)
	s.mu.RUnlock()

	for _, person := range persons {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(person); err != nil {
			return err
		}
	}
	return nil
}

// SumByCategory implements domain.CategoryQuery.
func (s *Store) SumByCategory(ctx context.Context, ref domain.PersonRef) ([]domain.CategorySum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var memberships []domain.Membership
	for _, activity := range s.activities {
		memberships = append(memberships, activity.Members...)
	}
	return domain.SumMemberships(ref, memberships), nil
}

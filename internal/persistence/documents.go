// Package persistence contains the stored document shapes shared by store implementations.
package persistence

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"example.com/timereport/internal/domain"
)

// UserDocument is a record of the users collection.
type UserDocument struct {
	ID     primitive.ObjectID   `bson:"_id"`
	Number string               `bson:"id"`
	Name   string               `bson:"name"`
	Group  []primitive.ObjectID `bson:"group"`
}

// ActivityDocument is a record of the activities collection.
type ActivityDocument struct {
	ID      any              `bson:"_id"`
	Name    string           `bson:"name"`
	Members []MemberDocument `bson:"members"`
}

// MemberDocument references a person either by ObjectID or by its hex string.
type MemberDocument struct {
	ID       any     `bson:"_id"`
	Mode     string  `bson:"mode"`
	Duration float64 `bson:"duration"`
}

// ToPerson converts the stored user into the domain model.
func (u UserDocument) ToPerson() domain.Person {
	groups := make([]domain.Identity, 0, len(u.Group))
	for _, g := range u.Group {
		groups = append(groups, g)
	}
	return domain.Person{
		ID:     u.ID,
		Number: u.Number,
		Name:   u.Name,
		Groups: groups,
	}
}

// ToActivity converts the stored activity into the domain model.
func (a ActivityDocument) ToActivity() domain.Activity {
	members := make([]domain.Membership, 0, len(a.Members))
	for _, m := range a.Members {
		members = append(members, domain.Membership{
			PersonRef: m.ID,
			Category:  domain.Category(m.Mode),
			Duration:  m.Duration,
		})
	}
	var id string
	if key, ok := domain.CanonicalKey(a.ID); ok {
		id = key
	}
	return domain.Activity{ID: id, Name: a.Name, Members: members}
}

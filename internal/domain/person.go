// Package domain defines the person/activity model and the per-person time aggregation.
package domain

// Category tags an activity membership with the kind of time it represents.
type Category string

const (
	CategoryOnCampus       Category = "on-campus"
	CategoryOffCampus      Category = "off-campus"
	CategorySocialPractice Category = "social-practice"
)

// Person is a tracked user read from the data store.
type Person struct {
	ID     Identity
	Number string
	Name   string
	Groups []Identity
}

// Activity groups the memberships recorded for one activity.
type Activity struct {
	ID      string
	Name    string
	Members []Membership
}

// Membership references a person by native identity or by its hex string.
type Membership struct {
	PersonRef any
	Category  Category
	Duration  float64
}

// CategorySum is one group of a per-person grouped-sum query.
type CategorySum struct {
	Category Category
	Duration float64
}

// TimeTotals holds the per-category and overall durations of one person.
type TimeTotals struct {
	OnCampus       float64
	OffCampus      float64
	SocialPractice float64
	Total          float64
}

// Result is either Present with totals or Absent when no membership matched.
type Result struct {
	Totals  TimeTotals
	present bool
}

// Present wraps totals found for a person, even if every field is zero.
func Present(totals TimeTotals) Result {
	return Result{Totals: totals, present: true}
}

// Absent signals that no membership referenced the person.
func Absent() Result {
	return Result{}
}

// IsPresent reports whether matching memberships were found.
func (r Result) IsPresent() bool {
	return r.present
}

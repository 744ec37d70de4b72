// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, and auth can all import types without depending
// on each other.
package types

import (
	"fmt"
	"time"
)

// Subject is one of the twelve fixed exam subjects. The set is closed:
// a student record always carries exactly one score per subject, never
// a missing, duplicate, or unknown one.
type Subject string

const (
	SubjectSomali     Subject = "SOMALI"
	SubjectIslamic    Subject = "ISLAMIC"
	SubjectArabic     Subject = "ARABIC"
	SubjectEnglish    Subject = "ENGLISH"
	SubjectHistory    Subject = "HISTORY"
	SubjectGeography  Subject = "GEOGRAPHY"
	SubjectMath       Subject = "MATH"
	SubjectPhysics    Subject = "PHYSICS"
	SubjectBiology    Subject = "BIOLOGY"
	SubjectChemistry  Subject = "CHEMISTRY"
	SubjectTechnology Subject = "TECHNOLOGY"
	SubjectBusiness   Subject = "BUSINESS"
)

// Subjects lists every subject in canonical order. Scores are 0–100 per
// subject, so a total is always in 0–1200.
var Subjects = []Subject{
	SubjectSomali, SubjectIslamic, SubjectArabic, SubjectEnglish,
	SubjectHistory, SubjectGeography, SubjectMath, SubjectPhysics,
	SubjectBiology, SubjectChemistry, SubjectTechnology, SubjectBusiness,
}

const (
	SubjectCount = 12
	MaxScore     = 100
)

// Exam result status values. Derived from the percentage, never set
// directly by a client.
const (
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
	StatusAll    = "ALL" // list filter only, not a stored value
)

// Student represents one exam candidate with their twelve subject scores
// and the fields derived from them. The derived fields (total, average,
// percentage, grade, status) are always recomputed together from the
// current scores — storage never updates one without the others.
type Student struct {
	ID          string         `json:"id"`
	RollNumber  string         `json:"rollNumber"`
	Name        string         `json:"name"`
	MothersName string         `json:"mothersName"`
	School      string         `json:"school"`
	PlaceOfExam string         `json:"placeOfExam"`
	Total       int            `json:"total"`
	Average     float64        `json:"average"`
	Percentage  float64        `json:"percentage"`
	Grade       string         `json:"grade"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	Scores      []SubjectScore `json:"scores"`
}

// SubjectScore is a single (subject, score) pair owned by one student.
type SubjectScore struct {
	Subject Subject `json:"subject"`
	Score   int     `json:"score"`
}

// UpsertStudent is the payload for creating a student or replacing one in
// full. There is no partial update: every identity field and all twelve
// scores must be present each time.
//
// The validate:"required" tags cover the identity fields; the scores map
// needs a shape check that struct tags cannot express (exactly the twelve
// recognised subject keys, each 0–100), which ScoreProblems performs.
type UpsertStudent struct {
	Name        string          `json:"name" validate:"required"`
	MothersName string          `json:"mothersName" validate:"required"`
	RollNumber  string          `json:"rollNumber" validate:"required"`
	School      string          `json:"school" validate:"required"`
	PlaceOfExam string          `json:"placeOfExam" validate:"required"`
	Scores      map[Subject]int `json:"scores" validate:"required"`
}

// ScoreProblems checks the scores map against the closed subject set and
// returns one message per violation: a missing subject, an unknown key, or
// a score outside 0–100. An empty result means the map holds exactly the
// twelve recognised subjects with in-range scores.
func (u UpsertStudent) ScoreProblems() []string {
	var problems []string

	for _, subject := range Subjects {
		score, ok := u.Scores[subject]
		if !ok {
			problems = append(problems, fmt.Sprintf("score for %s is required", subject))
			continue
		}
		if score < 0 || score > MaxScore {
			problems = append(problems,
				fmt.Sprintf("score for %s must be between 0 and %d", subject, MaxScore))
		}
	}

	known := make(map[Subject]bool, len(Subjects))
	for _, subject := range Subjects {
		known[subject] = true
	}
	for subject := range u.Scores {
		if !known[subject] {
			problems = append(problems, fmt.Sprintf("unknown subject %s", subject))
		}
	}

	return problems
}

// StudentFilter narrows and pages the admin student list.
type StudentFilter struct {
	// Status is ALL, PASSED, or FAILED.
	Status string
	// Query is matched against roll number, name, and school.
	Query string
	// Page is 1-based; PageSize is capped by the handler.
	Page     int
	PageSize int
}

// StudentPage is one page of the admin list plus the total match count.
type StudentPage struct {
	Total    int64     `json:"total"`
	Items    []Student `json:"items"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// Admin is the credential record for the administration area. The password
// hash never leaves the server: json:"-" keeps it out of every response.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Stats are the dashboard counters.
type Stats struct {
	All    int64 `json:"all"`
	Passed int64 `json:"passed"`
	Failed int64 `json:"failed"`
}

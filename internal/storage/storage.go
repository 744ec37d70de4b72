// Package storage defines the Storage interface — the contract any
// database backend must satisfy — plus the sentinel errors handlers match
// with errors.Is to choose an HTTP status.
//
// Handlers depend only on this interface, never on the SQLite package
// directly, so swapping the backend means implementing these methods and
// changing one line in main.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/exam-results-api/internal/grades"
	"github.com/aanand-mishra/exam-results-api/internal/types"
)

var (
	// ErrStudentNotFound — no student matched the id or roll number.
	ErrStudentNotFound = errors.New("student not found")
	// ErrRollNumberTaken — the unique roll-number index rejected a write.
	ErrRollNumberTaken = errors.New("roll number already exists")
	// ErrAdminNotFound — no admin matched the id or email.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrEmailTaken — the unique admin-email index rejected a write.
	ErrEmailTaken = errors.New("admin email already exists")
)

// Storage is the database contract.
//
// Uniqueness is enforced here, not by callers: a prior read never decides
// whether a write is safe. CreateStudent/UpdateStudent/CreateAdmin report
// constraint violations through the sentinel errors above, which is the
// only conflict signal the rest of the application trusts.
type Storage interface {
	// CreateStudent inserts a student row and its twelve score rows in one
	// transaction and returns the stored record. Fails with
	// ErrRollNumberTaken if the roll number is already in use.
	CreateStudent(ctx context.Context, input types.UpsertStudent, sum grades.Summary) (types.Student, error)

	// GetStudentByID fetches one student with scores, or ErrStudentNotFound.
	GetStudentByID(ctx context.Context, id string) (types.Student, error)

	// GetStudentByRollNumber is the public-lookup read path.
	GetStudentByRollNumber(ctx context.Context, rollNumber string) (types.Student, error)

	// ListStudents returns one page of students (newest first) and the
	// total number of records matching the filter.
	ListStudents(ctx context.Context, filter types.StudentFilter) (types.StudentPage, error)

	// UpdateStudent replaces every identity field and all twelve score rows
	// in one transaction, storing the freshly derived summary. Fails with
	// ErrStudentNotFound if the id is absent, ErrRollNumberTaken if the new
	// roll number collides with a different student.
	UpdateStudent(ctx context.Context, id string, input types.UpsertStudent, sum grades.Summary) (types.Student, error)

	// DeleteStudent removes the student and all of its score rows.
	// Deleting an absent id returns ErrStudentNotFound.
	DeleteStudent(ctx context.Context, id string) error

	// CountStudents returns the dashboard counters.
	CountStudents(ctx context.Context) (types.Stats, error)

	// CreateAdmin inserts an admin credential record. The unique email
	// index is the final arbiter of first-registration races: the loser
	// gets ErrEmailTaken, never a silent duplicate.
	CreateAdmin(ctx context.Context, email, passwordHash string) (types.Admin, error)

	// GetAdminByEmail fetches an admin for login, or ErrAdminNotFound.
	GetAdminByEmail(ctx context.Context, email string) (types.Admin, error)

	// GetAdminByID resolves a session's admin id, or ErrAdminNotFound.
	GetAdminByID(ctx context.Context, id string) (types.Admin, error)

	// CountAdmins reports how many admin records exist.
	CountAdmins(ctx context.Context) (int64, error)

	// FirstAdmin returns the oldest admin record, or ErrAdminNotFound.
	// Used by the registration probe to surface the registered email.
	FirstAdmin(ctx context.Context) (types.Admin, error)
}

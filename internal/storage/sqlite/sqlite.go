// Package sqlite provides the SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite keeps the whole database in a single file, which fits this
// system's shape: a handful of tables, low write volume, and a uniqueness
// constraint doing the real concurrency work. The two invariants that
// matter live here:
//
//   - students.roll_number and admins.email are UNIQUE, and a constraint
//     violation — not a prior read — is what turns into a conflict error;
//   - a student row and its twelve score rows always change inside one
//     transaction, so a record can never be observed with missing or
//     duplicate subjects.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/exam-results-api/internal/config"
	"github.com/aanand-mishra/exam-results-api/internal/grades"
	"github.com/aanand-mishra/exam-results-api/internal/storage"
	"github.com/aanand-mishra/exam-results-api/internal/types"

	// Importing the driver package registers the "sqlite3" driver with
	// database/sql; the named import also exposes its error codes.
	"github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// The embedded *sql.DB is a connection pool and is safe for concurrent use.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at cfg.StoragePath, creates the schema if
// it does not exist yet, and returns a ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	// _foreign_keys=on makes SQLite enforce the subject_scores → students
	// reference; it is off by default per connection.
	db, err := sql.Open("sqlite3", cfg.StoragePath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every
	// startup.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id            TEXT     PRIMARY KEY,
			roll_number   TEXT     NOT NULL UNIQUE,
			name          TEXT     NOT NULL,
			mothers_name  TEXT     NOT NULL,
			school        TEXT     NOT NULL,
			place_of_exam TEXT     NOT NULL,
			total         INTEGER  NOT NULL,
			average       REAL     NOT NULL,
			percentage    REAL     NOT NULL,
			grade         TEXT     NOT NULL,
			status        TEXT     NOT NULL,
			created_at    DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS subject_scores (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			student_id TEXT    NOT NULL REFERENCES students(id),
			subject    TEXT    NOT NULL,
			score      INTEGER NOT NULL,
			UNIQUE (student_id, subject)
		);

		CREATE TABLE IF NOT EXISTS admins (
			id            TEXT     PRIMARY KEY,
			email         TEXT     NOT NULL UNIQUE,
			password_hash TEXT     NOT NULL,
			created_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: create schema: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// Which sentinel it maps to depends on the statement that produced it.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

// CreateStudent inserts the student row and its twelve score rows in one
// transaction. The derived fields arrive precomputed in sum and are stored
// alongside the raw scores they were computed from.
func (s *SQLite) CreateStudent(ctx context.Context, input types.UpsertStudent, sum grades.Summary) (types.Student, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC()

	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: begin tx: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO students
			(id, roll_number, name, mothers_name, school, place_of_exam,
			 total, average, percentage, grade, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.RollNumber, input.Name, input.MothersName, input.School,
		input.PlaceOfExam, sum.Total, sum.Average, sum.Percentage,
		sum.Grade, sum.Status, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrRollNumberTaken
		}
		return types.Student{}, fmt.Errorf("CreateStudent: insert student: %w", err)
	}

	if err := insertScores(ctx, tx, id, input.Scores); err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: commit: %w", err)
	}

	return s.GetStudentByID(ctx, id)
}

// insertScores writes one row per subject in canonical order, inside the
// caller's transaction.
func insertScores(ctx context.Context, tx *sql.Tx, studentID string, scores map[types.Subject]int) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO subject_scores (student_id, subject, score) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("insert scores: prepare: %w", err)
	}
	defer stmt.Close()

	for _, subject := range types.Subjects {
		if _, err := stmt.ExecContext(ctx, studentID, string(subject), scores[subject]); err != nil {
			return fmt.Errorf("insert scores: exec %s: %w", subject, err)
		}
	}
	return nil
}

const studentColumns = `id, roll_number, name, mothers_name, school,
	place_of_exam, total, average, percentage, grade, status, created_at`

// scanStudent reads one student row. Works for both *sql.Row and *sql.Rows
// through the shared Scan signature.
func scanStudent(scan func(dest ...any) error) (types.Student, error) {
	var st types.Student
	err := scan(
		&st.ID, &st.RollNumber, &st.Name, &st.MothersName, &st.School,
		&st.PlaceOfExam, &st.Total, &st.Average, &st.Percentage,
		&st.Grade, &st.Status, &st.CreatedAt,
	)
	return st, err
}

// GetStudentByID fetches one student and their scores.
func (s *SQLite) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	return s.getStudent(ctx, "id", id)
}

// GetStudentByRollNumber is the public lookup read path.
func (s *SQLite) GetStudentByRollNumber(ctx context.Context, rollNumber string) (types.Student, error) {
	return s.getStudent(ctx, "roll_number", rollNumber)
}

func (s *SQLite) getStudent(ctx context.Context, column, value string) (types.Student, error) {
	row := s.Db.QueryRowContext(ctx,
		"SELECT "+studentColumns+" FROM students WHERE "+column+" = ? LIMIT 1", value)

	st, err := scanStudent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrStudentNotFound
		}
		return types.Student{}, fmt.Errorf("getStudent: scan: %w", err)
	}

	st.Scores, err = s.loadScores(ctx, st.ID)
	if err != nil {
		return types.Student{}, fmt.Errorf("getStudent: %w", err)
	}
	return st, nil
}

// loadScores returns a student's score rows in canonical subject order.
func (s *SQLite) loadScores(ctx context.Context, studentID string) ([]types.SubjectScore, error) {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT subject, score FROM subject_scores WHERE student_id = ?", studentID)
	if err != nil {
		return nil, fmt.Errorf("load scores: query: %w", err)
	}
	defer rows.Close()

	bySubject := make(map[types.Subject]int, types.SubjectCount)
	for rows.Next() {
		var subject string
		var score int
		if err := rows.Scan(&subject, &score); err != nil {
			return nil, fmt.Errorf("load scores: scan: %w", err)
		}
		bySubject[types.Subject(subject)] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load scores: rows iteration: %w", err)
	}

	scores := make([]types.SubjectScore, 0, types.SubjectCount)
	for _, subject := range types.Subjects {
		if score, ok := bySubject[subject]; ok {
			scores = append(scores, types.SubjectScore{Subject: subject, Score: score})
		}
	}
	return scores, nil
}

// escapeLike backslash-escapes the LIKE metacharacters so a free-text
// search term always matches as a literal substring.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListStudents returns one page of students, newest first, plus the total
// count matching the filter.
func (s *SQLite) ListStudents(ctx context.Context, filter types.StudentFilter) (types.StudentPage, error) {
	where := " WHERE 1=1"
	var args []any

	if filter.Status == types.StatusPassed || filter.Status == types.StatusFailed {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Query != "" {
		// LIKE is case-insensitive for ASCII in SQLite, matching the
		// search behaviour of the admin table. The query is a literal
		// substring, so its % and _ must not act as wildcards.
		where += ` AND (roll_number LIKE ? ESCAPE '\'` +
			` OR name LIKE ? ESCAPE '\'` +
			` OR school LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(filter.Query) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int64
	err := s.Db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM students"+where, args...).Scan(&total)
	if err != nil {
		return types.StudentPage{}, fmt.Errorf("ListStudents: count: %w", err)
	}

	// rowid breaks ties between records created in the same instant.
	query := "SELECT " + studentColumns + " FROM students" + where +
		" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := s.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.StudentPage{}, fmt.Errorf("ListStudents: query: %w", err)
	}
	defer rows.Close()

	// Pre-allocate an empty (non-nil) slice so the JSON list is [] rather
	// than null when the page is empty.
	items := make([]types.Student, 0, filter.PageSize)
	for rows.Next() {
		st, err := scanStudent(rows.Scan)
		if err != nil {
			return types.StudentPage{}, fmt.Errorf("ListStudents: scan row: %w", err)
		}
		items = append(items, st)
	}
	if err := rows.Err(); err != nil {
		return types.StudentPage{}, fmt.Errorf("ListStudents: rows iteration: %w", err)
	}

	for i := range items {
		items[i].Scores, err = s.loadScores(ctx, items[i].ID)
		if err != nil {
			return types.StudentPage{}, fmt.Errorf("ListStudents: %w", err)
		}
	}

	return types.StudentPage{
		Total:    total,
		Items:    items,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// UpdateStudent replaces every identity field, the derived fields, and all
// twelve score rows in a single transaction. The score rows are deleted and
// recreated rather than patched, so the record either moves to the new set
// in full or stays exactly as it was.
func (s *SQLite) UpdateStudent(ctx context.Context, id string, input types.UpsertStudent, sum grades.Summary) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE students SET
			roll_number = ?, name = ?, mothers_name = ?, school = ?,
			place_of_exam = ?, total = ?, average = ?, percentage = ?,
			grade = ?, status = ?
		WHERE id = ?`,
		input.RollNumber, input.Name, input.MothersName, input.School,
		input.PlaceOfExam, sum.Total, sum.Average, sum.Percentage,
		sum.Grade, sum.Status, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Student{}, storage.ErrRollNumberTaken
		}
		return types.Student{}, fmt.Errorf("UpdateStudent: update student: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Student{}, storage.ErrStudentNotFound
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM subject_scores WHERE student_id = ?", id); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: delete scores: %w", err)
	}
	if err := insertScores(ctx, tx, id, input.Scores); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: commit: %w", err)
	}

	return s.GetStudentByID(ctx, id)
}

// DeleteStudent removes the score rows and the student row together.
func (s *SQLite) DeleteStudent(ctx context.Context, id string) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteStudent: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM subject_scores WHERE student_id = ?", id); err != nil {
		return fmt.Errorf("DeleteStudent: delete scores: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteStudent: delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteStudent: rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrStudentNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteStudent: commit: %w", err)
	}
	return nil
}

// CountStudents returns the overall and per-status counts in one query.
func (s *SQLite) CountStudents(ctx context.Context) (types.Stats, error) {
	var stats types.Stats
	err := s.Db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(status = ?), 0),
		       COALESCE(SUM(status = ?), 0)
		FROM students`,
		types.StatusPassed, types.StatusFailed,
	).Scan(&stats.All, &stats.Passed, &stats.Failed)
	if err != nil {
		return types.Stats{}, fmt.Errorf("CountStudents: scan: %w", err)
	}
	return stats, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Admins
// ─────────────────────────────────────────────────────────────────────────────

// CreateAdmin inserts an admin credential record. Two concurrent first
// registrations both reach this insert; the UNIQUE email index lets exactly
// one through and the other receives ErrEmailTaken.
func (s *SQLite) CreateAdmin(ctx context.Context, email, passwordHash string) (types.Admin, error) {
	admin := types.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.Db.ExecContext(ctx,
		"INSERT INTO admins (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		admin.ID, admin.Email, admin.PasswordHash, admin.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Admin{}, storage.ErrEmailTaken
		}
		return types.Admin{}, fmt.Errorf("CreateAdmin: insert: %w", err)
	}
	return admin, nil
}

func (s *SQLite) getAdmin(ctx context.Context, query string, args ...any) (types.Admin, error) {
	var admin types.Admin
	err := s.Db.QueryRowContext(ctx, query, args...).Scan(
		&admin.ID, &admin.Email, &admin.PasswordHash, &admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Admin{}, storage.ErrAdminNotFound
		}
		return types.Admin{}, fmt.Errorf("getAdmin: scan: %w", err)
	}
	return admin, nil
}

// GetAdminByEmail fetches an admin for the login credential check.
func (s *SQLite) GetAdminByEmail(ctx context.Context, email string) (types.Admin, error) {
	return s.getAdmin(ctx,
		"SELECT id, email, password_hash, created_at FROM admins WHERE email = ? LIMIT 1", email)
}

// GetAdminByID resolves a session token's admin id to a record.
func (s *SQLite) GetAdminByID(ctx context.Context, id string) (types.Admin, error) {
	return s.getAdmin(ctx,
		"SELECT id, email, password_hash, created_at FROM admins WHERE id = ? LIMIT 1", id)
}

// CountAdmins reports how many admin records exist.
func (s *SQLite) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := s.Db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountAdmins: scan: %w", err)
	}
	return count, nil
}

// FirstAdmin returns the oldest admin record.
func (s *SQLite) FirstAdmin(ctx context.Context) (types.Admin, error) {
	return s.getAdmin(ctx,
		"SELECT id, email, password_hash, created_at FROM admins ORDER BY created_at ASC, rowid ASC LIMIT 1")
}

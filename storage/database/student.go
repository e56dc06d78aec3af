package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/student"
)

type dbStudent struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Course    string    `db:"course"`
	Year      int       `db:"year"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s dbStudent) toStudent() student.Student {
	return student.Student(s)
}

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckStudentUniqueness(ctx context.Context, id, email string, excluded ...student.Student) error {
	q := `SELECT id, email FROM student WHERE (id = $1 OR email = $2)`
	args := []interface{}{id, email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, s := range excluded {
			ids = append(ids, s.ID)
		}
		inQ, inArgs, err := sqlx.In(`SELECT id, email FROM student WHERE (id = ? OR email = ?) AND id NOT IN (?)`, id, email, ids)
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		q = repo.db.Rebind(inQ)
		args = inArgs
	}

	rows, err := repo.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var sid, mail string
		if err = rows.Scan(&sid, &mail); err != nil {
			return errors.Wrap(err, "checking uniqueness")
		}
		if id != "" && sid == id {
			return student.ErrIDExists
		}
		if mail == email {
			return student.ErrEmailExists
		}
	}
	return errors.Wrap(rows.Err(), "checking uniqueness")
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q := `
	INSERT INTO student (id, name, email, course, year, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q, std.ID, std.Name, std.Email, std.Course, std.Year, std.CreatedAt, std.UpdatedAt)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var rows []dbStudent
	q := `SELECT * FROM student ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return repo.toStudents(rows), nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var row dbStudent
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	q := new(strings.Builder)
	q.WriteString(`SELECT * FROM student WHERE 1=1`)
	var args []interface{}

	where := func(clause string, vals ...interface{}) {
		for _, v := range vals {
			args = append(args, v)
			clause = strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1)
		}
		q.WriteString(clause)
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where(" AND (id ILIKE ? OR name ILIKE ? OR email ILIKE ?)", pattern, pattern, pattern)
	}
	if filter.Course != "" {
		where(" AND course ILIKE ?", filter.Course)
	}
	if filter.Year != 0 {
		where(" AND year = ?", filter.Year)
	}
	q.WriteString(` ORDER BY id`)

	var rows []dbStudent
	if err := repo.db.SelectContext(ctx, &rows, q.String(), args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	return repo.toStudents(rows), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q := `
	UPDATE student SET
		name       = COALESCE(NULLIF($2::text, ''), name),
		email      = COALESCE(NULLIF($3::text, ''), email),
		course     = COALESCE(NULLIF($4::text, ''), course),
		year       = COALESCE(NULLIF($5::int, 0), year),
		updated_at = $6
	WHERE id = $1
	RETURNING *`
	var row dbStudent
	err := repo.db.GetContext(ctx, &row, q, std.ID, std.Name, std.Email, std.Course, std.Year, std.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM student WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	return errors.Wrap(err, "deleting students")
}

func (repo *studentRepository) toStudents(rows []dbStudent) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/PressureTank/usersvc/backend/user"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE
)`

type SQLiteDB struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ user.Database = (*SQLiteDB)(nil)

func NewSQLiteDB(db *sql.DB, logger *zap.Logger) *SQLiteDB {
	return &SQLiteDB{
		db:     db,
		logger: logger,
	}
}

// Open opens dsn with the sqlite3 driver and creates the users table.
//
// The pool is limited to a single connection: every connection to ":memory:"
// gets its own empty database, and one connection also serializes writers.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return NewSQLiteDB(db, logger), nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// nullable maps an absent field to SQL NULL.
func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func (s *SQLiteDB) CreateUser(ctx context.Context, in user.Input) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (name, email) VALUES (?, ?)", nullable(in.Name), nullable(in.Email))
	if err != nil {
		s.logger.Error("Error inserting user into database", zap.Error(err))
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		s.logger.Error("Error reading inserted user id", zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (s *SQLiteDB) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email FROM users")
	if err != nil {
		s.logger.Error("Error fetching users from database", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	users := make([]user.User, 0)
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			s.logger.Error("Error scanning user row", zap.Error(err))
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("Error iterating user rows", zap.Error(err))
		return nil, err
	}

	return users, nil
}

// GetUser, UpdateUser and DeleteUser bind id as given. SQLite applies the
// column's integer affinity, so "01" and "1.0" match row 1 and "abc" matches nothing.
func (s *SQLiteDB) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name, email FROM users WHERE id = ?", id)
	var u user.User
	err := row.Scan(&u.ID, &u.Name, &u.Email)
	if err == sql.ErrNoRows {
		return nil, user.ErrNotFound
	} else if err != nil {
		s.logger.Error("Error fetching user from database", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &u, nil
}

// UpdateUser returns the stored id of the updated row.
func (s *SQLiteDB) UpdateUser(ctx context.Context, id string, in user.Input) (int64, error) {
	row := s.db.QueryRowContext(ctx, "UPDATE users SET name = ?, email = ? WHERE id = ? RETURNING id", nullable(in.Name), nullable(in.Email), id)
	var stored int64
	err := row.Scan(&stored)
	if err == sql.ErrNoRows {
		return 0, user.ErrNotFound
	} else if err != nil {
		s.logger.Error("Error updating user in database", zap.String("id", id), zap.Error(err))
		return 0, err
	}
	return stored, nil
}

func (s *SQLiteDB) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		s.logger.Error("Error deleting user from database", zap.String("id", id), zap.Error(err))
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.logger.Error("Error reading affected rows", zap.String("id", id), zap.Error(err))
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Count returns the number of stored users.
func (s *SQLiteDB) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		s.logger.Error("Error counting users", zap.Error(err))
		return 0, err
	}
	return n, nil
}

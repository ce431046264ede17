package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/usersvc/backend/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, birth_date, address, phone_number, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user      model.User
		birthDate time.Time
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&birthDate,
		&user.Address,
		&user.PhoneNumber,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.BirthDate = model.DateOf(birthDate)
	return &user, nil
}

func (db *Postgres) FindUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(db.Pool.QueryRow(ctx, query, id))
	if IsNoRows(err) {
		return nil, ErrNotFound
	}
	return user, err
}

func (db *Postgres) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(db.Pool.QueryRow(ctx, query, email))
	if IsNoRows(err) {
		return nil, ErrNotFound
	}
	return user, err
}

func (db *Postgres) UserExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (db *Postgres) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// SaveUser inserts the user when ID is zero and updates it otherwise.
func (db *Postgres) SaveUser(ctx context.Context, user *model.User) (*model.User, error) {
	var (
		saved *model.User
		err   error
	)
	if user.ID == 0 {
		query := `
			INSERT INTO users (email, password_hash, first_name, last_name, birth_date, address, phone_number, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING ` + userColumns
		saved, err = scanUser(db.Pool.QueryRow(ctx, query,
			user.Email, user.PasswordHash, user.FirstName, user.LastName,
			user.BirthDate.Time(), user.Address, user.PhoneNumber,
		))
	} else {
		query := `
			UPDATE users
			SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
				birth_date = $6, address = $7, phone_number = $8, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + userColumns
		saved, err = scanUser(db.Pool.QueryRow(ctx, query,
			user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
			user.BirthDate.Time(), user.Address, user.PhoneNumber,
		))
	}
	switch {
	case err == nil:
		return saved, nil
	case IsNoRows(err):
		return nil, ErrNotFound
	case isUniqueViolation(err):
		return nil, ErrDuplicateEmail
	default:
		return nil, err
	}
}

func (db *Postgres) DeleteUserByID(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) FindUserPage(ctx context.Context, page model.PageRequest) ([]model.User, int64, error) {
	var total int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := db.Pool.Query(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	users, err := collectUsers(rows)
	return users, total, err
}

// FindUsersByBirthDateRange pages users born within [from, to], both inclusive.
func (db *Postgres) FindUsersByBirthDateRange(ctx context.Context, from, to model.Date, page model.PageRequest) ([]model.User, int64, error) {
	var total int64
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE birth_date BETWEEN $1 AND $2`,
		from.Time(), to.Time(),
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE birth_date BETWEEN $1 AND $2
		ORDER BY id
		LIMIT $3 OFFSET $4`
	rows, err := db.Pool.Query(ctx, query, from.Time(), to.Time(), page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	users, err := collectUsers(rows)
	return users, total, err
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	defer rows.Close()

	list := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

package database

import (
	"context"
	"fmt"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
)

const userSelect = `
	SELECT u.id, u.firstname, u.lastname, u.roleid, r.name, u.counselorid, u.dateofbirth,
		u.email, u.password, u.phonenumber, u.isemailverified, u.isphoneverified,
		u.address, u.profilepicture, u.isactive, u.refreshtoken, u.provider, u.gender,
		u.createdat, u.updatedat
	FROM users u
	JOIN roles r ON r.id = u.roleid`

type UserRepository struct {
	db      DBPool
	dialect Dialect
}

func NewUserRepository(db DBPool) *UserRepository {
	return &UserRepository{db: db, dialect: DialectOf(db)}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	provider := u.Provider
	if provider == "" {
		provider = models.ProviderLocal
	}
	var dob any
	if u.DateOfBirth != nil {
		dob = r.dialect.Time(*u.DateOfBirth)
	}

	query := fmt.Sprintf(`
		INSERT INTO users (
			firstname, lastname, roleid, counselorid, dateofbirth, email, password,
			phonenumber, isemailverified, isphoneverified, address, profilepicture,
			isactive, provider, gender, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, %s, %s)
		RETURNING id`, r.dialect.Now(), r.dialect.Now())

	var id int64
	err := r.db.QueryRow(ctx, query,
		u.FirstName, u.LastName, u.RoleID, u.CounselorID, dob, u.Email, u.Password,
		u.PhoneNumber, u.IsEmailVerified, u.IsPhoneVerified, u.Address, u.ProfilePicture,
		u.IsActive, provider, u.Gender,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, userSelect+` WHERE u.id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, userSelect+` WHERE u.email = $1`, email)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getOne(ctx, userSelect+` WHERE u.phonenumber = $1`, phone)
}

// GetByEmailOrPhone resolves a sign-in identifier that may be either.
func (r *UserRepository) GetByEmailOrPhone(ctx context.Context, value string) (*models.User, error) {
	return r.getOne(ctx, userSelect+` WHERE u.email = $1 OR u.phonenumber = $1`, value)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, page models.Page, filter models.UserFilter) ([]models.User, int64, error) {
	if r.db == nil {
		return nil, 0, fmt.Errorf("database connection is nil")
	}

	var q queryArgs
	var conds []string
	if filter.Email != "" {
		conds = append(conds, "u.email = "+q.next(filter.Email))
	}
	if filter.PhoneNumber != "" {
		conds = append(conds, "u.phonenumber = "+q.next(filter.PhoneNumber))
	}
	if filter.FirstName != "" {
		conds = append(conds, r.dialect.ContainsFold("u.firstname", q.next("%"+filter.FirstName+"%")))
	}
	if filter.IsActive != nil {
		conds = append(conds, "u.isactive = "+q.next(*filter.IsActive))
	}
	if filter.RoleID != nil {
		conds = append(conds, "u.roleid = "+q.next(*filter.RoleID))
	}
	if filter.Gender != "" {
		conds = append(conds, "u.gender = "+q.next(filter.Gender))
	}
	where := whereSQL(conds)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := userSelect + where + ` ORDER BY u.createdat DESC, u.id DESC LIMIT ` + q.next(page.Limit) + ` OFFSET ` + q.next(page.Offset())
	rows, err := r.db.Query(ctx, query, q.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, page.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// Update applies the non-nil fields of upd and returns the fresh row.
func (r *UserRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if upd.Empty() {
		return r.GetByID(ctx, id)
	}

	var set setClause
	if upd.FirstName != nil {
		set.add("firstname", *upd.FirstName)
	}
	if upd.LastName != nil {
		set.add("lastname", *upd.LastName)
	}
	if upd.DateOfBirth != nil {
		set.add("dateofbirth", r.dialect.Time(*upd.DateOfBirth))
	}
	if upd.Address != nil {
		set.add("address", *upd.Address)
	}
	if upd.ProfilePicture != nil {
		set.add("profilepicture", *upd.ProfilePicture)
	}
	if upd.Gender != nil {
		set.add("gender", *upd.Gender)
	}
	if upd.Password != nil {
		set.add("password", *upd.Password)
	}
	if upd.IsEmailVerified != nil {
		set.add("isemailverified", *upd.IsEmailVerified)
	}
	if upd.IsActive != nil {
		set.add("isactive", *upd.IsActive)
	}
	if upd.Provider != nil {
		set.add("provider", *upd.Provider)
	}
	set.raw("updatedat = " + r.dialect.Now())

	query := `UPDATE users SET ` + set.String() + ` WHERE id = ` + set.next(id)
	if err := r.execOne(ctx, query, set.args...); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return r.GetByID(ctx, id)
}

// UpdateRefreshToken stores token, or clears it when token is nil.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, id int64, token *string) error {
	query := fmt.Sprintf(`UPDATE users SET refreshtoken = $1, updatedat = %s WHERE id = $2`, r.dialect.Now())
	if err := r.execOne(ctx, query, token, id); err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	return nil
}

// SetCounselor links a login to a counselor profile, or unlinks it with nil.
func (r *UserRepository) SetCounselor(ctx context.Context, id int64, counselorID *int64) error {
	query := fmt.Sprintf(`UPDATE users SET counselorid = $1, updatedat = %s WHERE id = $2`, r.dialect.Now())
	if err := r.execOne(ctx, query, counselorID, id); err != nil {
		return fmt.Errorf("failed to link counselor: %w", err)
	}
	return nil
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	if r.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.RoleID, &u.RoleName, &u.CounselorID, &u.DateOfBirth,
		&u.Email, &u.Password, &u.PhoneNumber, &u.IsEmailVerified, &u.IsPhoneVerified,
		&u.Address, &u.ProfilePicture, &u.IsActive, &u.RefreshToken, &u.Provider, &u.Gender,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

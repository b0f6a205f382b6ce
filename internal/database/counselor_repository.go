package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
)

const counselorColumns = `id, fullname, title, yearsofexperience, bio, avatarurl, specialties, isactive, rating, createdat, updatedat`

type CounselorRepository struct {
	db      DBPool
	dialect Dialect
}

func NewCounselorRepository(db DBPool) *CounselorRepository {
	return &CounselorRepository{db: db, dialect: DialectOf(db)}
}

func (r *CounselorRepository) Create(ctx context.Context, c *models.Counselor) (*models.Counselor, error) {
	specialties, err := encodeSpecialties(c.Specialties)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO counselors (fullname, title, yearsofexperience, bio, avatarurl, specialties, isactive, rating, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, %s, %s)
		RETURNING id`, r.dialect.Now(), r.dialect.Now())

	var id int64
	err = r.db.QueryRow(ctx, query,
		c.FullName, c.Title, c.YearsOfExperience, c.Bio, c.AvatarURL, specialties, c.IsActive, c.Rating,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create counselor: %w", translateError(err))
	}
	return r.GetByID(ctx, id)
}

func (r *CounselorRepository) GetByID(ctx context.Context, id int64) (*models.Counselor, error) {
	c, err := scanCounselor(r.db.QueryRow(ctx, `SELECT `+counselorColumns+` FROM counselors WHERE id = $1`, id))
	if err != nil {
		return nil, translateError(err)
	}
	return c, nil
}

// Exists is the cheap check bookings make before referencing a counselor.
func (r *CounselorRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM counselors WHERE id = $1`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check counselor: %w", err)
	}
	return n > 0, nil
}

func (r *CounselorRepository) List(ctx context.Context, page models.Page, filter models.CounselorFilter) ([]models.Counselor, int64, error) {
	var q queryArgs
	var conds []string
	if filter.Search != "" {
		p := q.next("%" + filter.Search + "%")
		conds = append(conds, "("+r.dialect.ContainsFold("fullname", p)+" OR "+r.dialect.ContainsFold("title", p)+")")
	}
	if filter.IsActive != nil {
		conds = append(conds, "isactive = "+q.next(*filter.IsActive))
	}
	where := whereSQL(conds)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM counselors`+where, q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count counselors: %w", err)
	}

	query := `SELECT ` + counselorColumns + ` FROM counselors` + where +
		` ORDER BY createdat DESC, id DESC LIMIT ` + q.next(page.Limit) + ` OFFSET ` + q.next(page.Offset())
	rows, err := r.db.Query(ctx, query, q.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list counselors: %w", err)
	}
	defer rows.Close()

	counselors := make([]models.Counselor, 0, page.Limit)
	for rows.Next() {
		c, err := scanCounselor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan counselor: %w", err)
		}
		counselors = append(counselors, *c)
	}
	return counselors, total, rows.Err()
}

func (r *CounselorRepository) Update(ctx context.Context, id int64, req models.CounselorUpdate) (*models.Counselor, error) {
	var set setClause
	if req.FullName != nil {
		set.add("fullname", *req.FullName)
	}
	if req.Title != nil {
		set.add("title", *req.Title)
	}
	if req.YearsOfExperience != nil {
		set.add("yearsofexperience", *req.YearsOfExperience)
	}
	if req.Bio != nil {
		set.add("bio", *req.Bio)
	}
	if req.AvatarURL != nil {
		set.add("avatarurl", *req.AvatarURL)
	}
	if req.Specialties != nil {
		specialties, err := encodeSpecialties(req.Specialties)
		if err != nil {
			return nil, err
		}
		set.add("specialties", specialties)
	}
	if req.IsActive != nil {
		set.add("isactive", *req.IsActive)
	}
	if req.Rating != nil {
		set.add("rating", *req.Rating)
	}
	set.raw("updatedat = " + r.dialect.Now())

	result, err := r.db.Exec(ctx, `UPDATE counselors SET `+set.String()+` WHERE id = `+set.next(id), set.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update counselor: %w", translateError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *CounselorRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM counselors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete counselor: %w", err)
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

func encodeSpecialties(specialties []string) (string, error) {
	if specialties == nil {
		specialties = []string{}
	}
	raw, err := json.Marshal(specialties)
	if err != nil {
		return "", fmt.Errorf("failed to encode specialties: %w", err)
	}
	return string(raw), nil
}

func scanCounselor(row Row) (*models.Counselor, error) {
	var c models.Counselor
	var specialties []byte
	err := row.Scan(
		&c.ID, &c.FullName, &c.Title, &c.YearsOfExperience, &c.Bio, &c.AvatarURL,
		&specialties, &c.IsActive, &c.Rating, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Specialties = []string{}
	if len(specialties) > 0 {
		if err := json.Unmarshal(specialties, &c.Specialties); err != nil {
			return nil, fmt.Errorf("failed to decode specialties: %w", err)
		}
	}
	return &c, nil
}

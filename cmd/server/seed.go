package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/crypto"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed seeds/default.yaml
var defaultSeed []byte

// SeedFile is the document read by the seed command.
type SeedFile struct {
	Roles      []SeedRole      `yaml:"roles"`
	Counselors []SeedCounselor `yaml:"counselors"`
	Users      []SeedUser      `yaml:"users"`
}

type SeedRole struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SeedCounselor struct {
	FullName          string   `yaml:"fullName"`
	Title             string   `yaml:"title"`
	YearsOfExperience int      `yaml:"yearsOfExperience"`
	Bio               string   `yaml:"bio"`
	Specialties       []string `yaml:"specialties"`
}

// SeedUser is created verified and active. Counselor names a seeded
// counselor profile to link the account to.
type SeedUser struct {
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Counselor string `yaml:"counselor"`
}

// SeedSummary counts what a seed run created. Existing rows are skipped.
type SeedSummary struct {
	Roles      int
	Counselors int
	Users      int
}

func parseSeedFile(raw []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, u := range seed.Users {
		if strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: email and password are required", i)
		}
	}
	for i, c := range seed.Counselors {
		if strings.TrimSpace(c.FullName) == "" || strings.TrimSpace(c.Title) == "" {
			return nil, fmt.Errorf("seed counselor %d: fullName and title are required", i)
		}
	}
	return &seed, nil
}

func runSeeder(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	file := fs.String("file", "", "path to a YAML seed file (defaults to the built-in seed)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw := defaultSeed
	if *file != "" {
		var err error
		if raw, err = os.ReadFile(*file); err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
	}
	seed, err := parseSeedFile(raw)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewDatabaseConnectionWithContext(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer db.Close()

	if _, err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	summary, err := applySeed(ctx, db, seed, crypto.NewPasswordHasher(0))
	if err != nil {
		return err
	}
	fmt.Printf("Seed complete: %d roles, %d counselors, %d users created\n", summary.Roles, summary.Counselors, summary.Users)
	return nil
}

// applySeed inserts whatever in seed does not exist yet. Roles match by
// name, counselors by full name and users by email.
func applySeed(ctx context.Context, db database.DBPool, seed *SeedFile, hasher *crypto.PasswordHasher) (SeedSummary, error) {
	var summary SeedSummary
	roles := database.NewRoleRepository(db)
	counselors := database.NewCounselorRepository(db)
	users := database.NewUserRepository(db)

	for _, r := range seed.Roles {
		_, err := roles.GetByName(ctx, r.Name)
		if err == nil {
			continue
		}
		if !database.IsNotFound(err) {
			return summary, fmt.Errorf("role %q: %w", r.Name, err)
		}
		var desc *string
		if r.Description != "" {
			desc = &r.Description
		}
		if _, err := roles.Create(ctx, r.Name, desc); err != nil {
			return summary, fmt.Errorf("role %q: %w", r.Name, err)
		}
		summary.Roles++
	}

	counselorIDs := make(map[string]int64, len(seed.Counselors))
	for _, c := range seed.Counselors {
		id, found, err := findCounselor(ctx, counselors, c.FullName)
		if err != nil {
			return summary, err
		}
		if !found {
			created, err := counselors.Create(ctx, &models.Counselor{
				FullName:          c.FullName,
				Title:             c.Title,
				YearsOfExperience: c.YearsOfExperience,
				Bio:               optional(c.Bio),
				Specialties:       c.Specialties,
				IsActive:          true,
			})
			if err != nil {
				return summary, fmt.Errorf("counselor %q: %w", c.FullName, err)
			}
			id = created.ID
			summary.Counselors++
		}
		counselorIDs[c.FullName] = id
	}

	for _, u := range seed.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		_, err := users.GetByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !database.IsNotFound(err) {
			return summary, fmt.Errorf("user %q: %w", email, err)
		}

		var counselorID *int64
		if u.Counselor != "" {
			id, ok := counselorIDs[u.Counselor]
			if !ok {
				return summary, fmt.Errorf("user %q: unknown counselor %q", email, u.Counselor)
			}
			counselorID = &id
		}

		roleName := u.Role
		if roleName == "" {
			roleName = models.RoleUser
		}
		role, created, err := lookupRole(ctx, roles, roleName)
		if err != nil {
			return summary, fmt.Errorf("user %q: role %q: %w", email, roleName, err)
		}
		if created {
			summary.Roles++
		}

		hash, err := hasher.HashPassword(u.Password)
		if err != nil {
			return summary, fmt.Errorf("user %q: %w", email, err)
		}

		if _, err := users.Create(ctx, &models.User{
			FirstName:       u.FirstName,
			LastName:        u.LastName,
			RoleID:          role.ID,
			CounselorID:     counselorID,
			Email:           email,
			Password:        hash,
			IsEmailVerified: true,
			IsActive:        true,
			Provider:        models.ProviderLocal,
		}); err != nil {
			return summary, fmt.Errorf("user %q: %w", email, err)
		}
		summary.Users++
	}
	return summary, nil
}

// lookupRole resolves a user's role. The default user role is created when
// missing; any other role must be seeded explicitly.
func lookupRole(ctx context.Context, repo *database.RoleRepository, name string) (*models.Role, bool, error) {
	role, err := repo.GetByName(ctx, name)
	if err == nil || !database.IsNotFound(err) || name != models.RoleUser {
		return role, false, err
	}
	desc := "User role"
	role, err = repo.Create(ctx, name, &desc)
	if errors.Is(err, database.ErrUniqueViolation) {
		role, err = repo.GetByName(ctx, name)
		return role, false, err
	}
	return role, err == nil, err
}

func findCounselor(ctx context.Context, repo *database.CounselorRepository, fullName string) (int64, bool, error) {
	found, _, err := repo.List(ctx, models.Page{Page: 1, Limit: 100}, models.CounselorFilter{Search: fullName})
	if err != nil {
		return 0, false, fmt.Errorf("counselor %q: %w", fullName, err)
	}
	for _, c := range found {
		if strings.EqualFold(c.FullName, fullName) {
			return c.ID, true, nil
		}
	}
	return 0, false, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

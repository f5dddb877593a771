package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/location"
	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/store"
)

// initCompany creates the named company and its admin account unless the
// company already exists. It returns the generated admin password when it
// created anything.
func initCompany(ctx context.Context, d *db.DB, companyName, adminUsername string) (bool, string, error) {
	existing, err := store.GetCompanyByName(ctx, d, companyName)
	if err != nil {
		return false, "", err
	}
	if existing != nil {
		return false, "", nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return false, "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, "", fmt.Errorf("hashing password: %w", err)
	}

	company, err := store.CreateCompany(ctx, d, companyName)
	if err != nil {
		return false, "", err
	}

	if _, err := store.CreateUser(ctx, d, company.ID, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return false, "", fmt.Errorf("creating admin user: %w", err)
	}

	return true, password, nil
}

// loadAliases upserts every alias of the seed file. Companies the file names
// but the database does not know are skipped.
func loadAliases(ctx context.Context, d *db.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	seed, err := location.LoadSeed(f)
	if err != nil {
		return 0, err
	}

	var n int
	for name, aliases := range seed.Companies {
		company, err := store.GetCompanyByName(ctx, d, name)
		if err != nil {
			return n, err
		}
		if company == nil {
			slog.Warn("alias file names unknown company, skipping", "company", name)
			continue
		}

		for _, a := range aliases {
			if err := store.UpsertLocationAlias(ctx, d, company.ID, a.Alias, a.Location); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

package store

import (
	"context"
	"testing"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
)

func mustCompany(t *testing.T, d *db.DB, name string) *model.Company {
	t.Helper()
	c, err := CreateCompany(context.Background(), d, name)
	if err != nil {
		t.Fatalf("CreateCompany(%q): %v", name, err)
	}
	return c
}

func mustUser(t *testing.T, d *db.DB, companyID, username string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), d, companyID, username, "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return u
}

func mustTool(t *testing.T, d *db.DB, companyID, name string) *model.Tool {
	t.Helper()
	tool, err := CreateTool(context.Background(), d, companyID, name, "")
	if err != nil {
		t.Fatalf("CreateTool(%q): %v", name, err)
	}
	return tool
}

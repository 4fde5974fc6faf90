package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"eagletask/internal/repositories"
)

func TestCreateAndListFilters(t *testing.T) {
	svc := NewFilterService(newFakeFilterRepo())

	if _, err := svc.CreateFilter(context.Background(), 1, "homework"); err != nil {
		t.Fatalf("CreateFilter: %v", err)
	}
	if _, err := svc.CreateFilter(context.Background(), 1, "quiz"); err != nil {
		t.Fatalf("CreateFilter: %v", err)
	}
	if _, err := svc.CreateFilter(context.Background(), 2, "homework"); err != nil {
		t.Fatalf("CreateFilter for second owner: %v", err)
	}

	filters, err := svc.ListFilters(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListFilters: %v", err)
	}
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters for owner 1, got %d", len(filters))
	}
}

func TestCreateFilterRejectsInvalidPhrase(t *testing.T) {
	svc := NewFilterService(newFakeFilterRepo())

	if _, err := svc.CreateFilter(context.Background(), 1, ""); err == nil {
		t.Fatal("empty filter should be rejected")
	}
	if _, err := svc.CreateFilter(context.Background(), 1, "   "); err == nil {
		t.Fatal("whitespace-only filter should be rejected")
	}
	if _, err := svc.CreateFilter(context.Background(), 1, strings.Repeat("a", 51)); err == nil {
		t.Fatal("over-length filter should be rejected")
	}
}

func TestCreateFilterDuplicate(t *testing.T) {
	svc := NewFilterService(newFakeFilterRepo())

	if _, err := svc.CreateFilter(context.Background(), 1, "homework"); err != nil {
		t.Fatalf("CreateFilter: %v", err)
	}
	_, err := svc.CreateFilter(context.Background(), 1, "homework")
	if !errors.Is(err, repositories.ErrDuplicateFilter) {
		t.Fatalf("expected ErrDuplicateFilter, got %v", err)
	}
}

func TestDeleteFilter(t *testing.T) {
	svc := NewFilterService(newFakeFilterRepo())

	if _, err := svc.CreateFilter(context.Background(), 1, "homework"); err != nil {
		t.Fatalf("CreateFilter: %v", err)
	}
	if err := svc.DeleteFilter(context.Background(), 1, "homework"); err != nil {
		t.Fatalf("DeleteFilter: %v", err)
	}
	filters, _ := svc.ListFilters(context.Background(), 1)
	if len(filters) != 0 {
		t.Fatalf("filter should be gone, got %v", filters)
	}

	if err := svc.DeleteFilter(context.Background(), 1, "homework"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing filter, got %v", err)
	}
}

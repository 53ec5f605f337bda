package testsupport

import (
	"context"
	"testing"

	"ward/internal/config"
	"ward/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// SeedNeighborhood inserts a neighborhood for tests using the provided
// store.
func SeedNeighborhood(t testing.TB, s *store.Store, n store.Neighborhood) store.Neighborhood {
	t.Helper()

	if n.Timezone == "" {
		n.Timezone = "Europe/Stockholm"
	}
	if n.City == "" {
		n.City = "Stockholm"
	}
	if err := s.UpsertNeighborhood(context.Background(), n); err != nil {
		t.Fatalf("store.UpsertNeighborhood: %v", err)
	}
	return n
}

// Package testutil provides helpers for tests that need a migrated store,
// sample city data or a ground-truth search.
//
// This package is intended for use in tests only.
//
//	db, cfg := testutil.NewMemoryDB(t)
//	repo := repository.NewCityRepository(db, cfg.Type)
//	expected := testutil.ExactSearch(cities, "new", false)
package testutil

// Package mocks provides mock implementations for testing the console services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockSessionStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), "sid").Return(session, nil)
package mocks

// SessionStore: Save, Get, Delete.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/Vignesh6104/sims-console/internal/ports SessionStore

// ClaimsReader: Read.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=claims_reader_mock.go github.com/Vignesh6104/sims-console/internal/ports ClaimsReader

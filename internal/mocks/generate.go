// Package mocks provides gomock implementations of the session ports.
//
// The mocks are generated from the interfaces in internal/ports with go.uber.org/mock.
// To regenerate them after an interface change, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	gw := mocks.NewMockSessionGateway(ctrl)
//	gw.EXPECT().RevokeRefreshCredential(gomock.Any(), "refresh").Return(resp, nil)
package mocks

// SessionGateway: Login, Refresh, RevokeRefreshCredential
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_gateway_mock.go github.com/target/identity-session/internal/ports SessionGateway

// SnapshotStore: Load, Save, Clear
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=snapshot_store_mock.go github.com/target/identity-session/internal/ports SnapshotStore

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cookie_store_mock.go github.com/target/identity-session/internal/ports CookieStore

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_binder_mock.go github.com/target/identity-session/internal/ports CredentialBinder

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=role_mapper_mock.go github.com/target/identity-session/internal/ports RoleMapper

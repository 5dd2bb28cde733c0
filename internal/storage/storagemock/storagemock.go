// Package storagemock has testify mocks for the storage interfaces.
package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/faultline/faultline/internal/model"
)

// MockRepository is a testify mock of storage.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) StoreEnvelope(ctx context.Context, e model.Envelope) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockRepository) GetEnvelope(ctx context.Context, id string) (*model.Envelope, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*model.Envelope)
	return e, args.Error(1)
}

func (m *MockRepository) ListEnvelopes(ctx context.Context) ([]model.Envelope, error) {
	args := m.Called(ctx)
	es, _ := args.Get(0).([]model.Envelope)
	return es, args.Error(1)
}

func (m *MockRepository) DeleteEnvelope(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) SaveAppState(ctx context.Context, s model.AppState) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockRepository) PreviousAppState(ctx context.Context) (*model.AppState, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*model.AppState)
	return s, args.Error(1)
}

func (m *MockRepository) MoveAppStateToPreviousAppState(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) AppendBreadcrumb(ctx context.Context, b model.Breadcrumb) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockRepository) PreviousBreadcrumbs(ctx context.Context) ([]model.Breadcrumb, error) {
	args := m.Called(ctx)
	bs, _ := args.Get(0).([]model.Breadcrumb)
	return bs, args.Error(1)
}

func (m *MockRepository) MoveBreadcrumbsToPreviousBreadcrumbs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

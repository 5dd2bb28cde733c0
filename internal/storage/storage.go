package storage

import (
	"context"

	"github.com/faultline/faultline/internal/model"
)

// EnvelopeRepository is the interface for the offline envelope store.
type EnvelopeRepository interface {
	StoreEnvelope(ctx context.Context, e model.Envelope) error
	GetEnvelope(ctx context.Context, id string) (*model.Envelope, error)
	ListEnvelopes(ctx context.Context) ([]model.Envelope, error)
	DeleteEnvelope(ctx context.Context, id string) error
}

// AppStateRepository is the interface for launch state persistence. The
// current slot describes the running launch; the previous slot is what the
// last launch wrote, rotated there on every SDK start so crash detection can
// inspect it.
type AppStateRepository interface {
	SaveAppState(ctx context.Context, s model.AppState) error
	PreviousAppState(ctx context.Context) (*model.AppState, error)
	MoveAppStateToPreviousAppState(ctx context.Context) error

	AppendBreadcrumb(ctx context.Context, b model.Breadcrumb) error
	PreviousBreadcrumbs(ctx context.Context) ([]model.Breadcrumb, error)
	MoveBreadcrumbsToPreviousBreadcrumbs(ctx context.Context) error
}

// Repository is the interface for SDK persistence.
type Repository interface {
	EnvelopeRepository
	AppStateRepository

	Close() error
}

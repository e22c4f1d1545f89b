package authsteps

import (
	"context"

	"idauth/pkg/domain"
)

// Store persists processes. Lookups return sentinel.ErrNotFound.
type Store interface {
	// Create saves a new process; a duplicate process id is sentinel.ErrConflict.
	Create(ctx context.Context, p *UserAuthSteps) error
	FindByProcessID(ctx context.Context, processID string) (*UserAuthSteps, error)
	Update(ctx context.Context, p *UserAuthSteps) error
	// FindAdmitting returns the newest unrevoked process of code for the
	// identity, restricted to status when set. The identity is userIdentifier
	// when present, otherwise the device.
	FindAdmitting(ctx context.Context, code domain.SchemaCode, userIdentifier, mobileUID string, status domain.StepsStatus) (*UserAuthSteps, error)
	// RevokeMatching flags unrevoked processes of code for the device and user.
	RevokeMatching(ctx context.Context, code domain.SchemaCode, mobileUID, userIdentifier string) (int, error)
}

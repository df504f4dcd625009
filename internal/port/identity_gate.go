package port

import "context"

// IdentityGate authenticates a caller credential and returns an opaque
// caller identity. Verification itself belongs to an external collaborator.
type IdentityGate interface {
	Authenticate(ctx context.Context, credential string) (string, error)
}

package auth

import (
	"context"

	"partnerledger/internal/models"
)

// Authenticator defines the contract for credential verification. The
// core only ever consumes the resolved actor it produces; swapping the
// mechanism (password, OAuth, ...) does not touch the service layer.
type Authenticator interface {
	// Register creates a new directory account with the given role and
	// credential.
	Register(ctx context.Context, email, name string, role models.Role, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the account.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
}

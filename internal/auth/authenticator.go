package auth

import (
	"context"
	"fmt"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

var ErrInvalidToken = fmt.Errorf("%w: invalid bearer token", domain.ErrUnauthorized)

type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Principal, error)
}

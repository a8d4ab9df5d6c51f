package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	objectfs "github.com/Jumpaku/go-objectfs"
)

// DefaultUserHeader carries the user ID set by an authenticating proxy in front of the server.
const DefaultUserHeader = "X-User-ID"

// ErrUnauthenticated is returned by a UserResolver when the request carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// UserResolver resolves the owner of the tree a request operates on.
type UserResolver interface {
	ResolveUser(r *http.Request) (objectfs.UserID, error)
}

// UserResolverFunc adapts a function to a UserResolver.
type UserResolverFunc func(r *http.Request) (objectfs.UserID, error)

func (f UserResolverFunc) ResolveUser(r *http.Request) (objectfs.UserID, error) {
	return f(r)
}

// HeaderUserResolver reads the decimal user ID from the named request header.
func HeaderUserResolver(header string) UserResolver {
	return UserResolverFunc(func(r *http.Request) (objectfs.UserID, error) {
		raw := strings.TrimSpace(r.Header.Get(header))
		if raw == "" {
			return 0, fmt.Errorf("missing header %s: %w", header, ErrUnauthenticated)
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid header %s: %w", header, ErrUnauthenticated)
		}
		return objectfs.UserID(id), nil
	})
}

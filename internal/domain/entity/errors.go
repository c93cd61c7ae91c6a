package entity

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is; the specific errors below wrap one of them.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrStoreUnavailable = errors.New("cart store unavailable")
)

var (
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrItemNotFound      = fmt.Errorf("cart item %w", ErrNotFound)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	ErrQuantityLimit     = fmt.Errorf("%w and at most the line limit", ErrInvalidQuantity)
	ErrInvalidIdentity   = fmt.Errorf("%w: identity needs a user id or a session id", ErrInvalidArgument)
	ErrEmptyProductID    = fmt.Errorf("%w: product id cannot be empty", ErrInvalidArgument)
	ErrReservedProductID = fmt.Errorf("%w: product id %q is reserved", ErrInvalidArgument, MetadataField)
)

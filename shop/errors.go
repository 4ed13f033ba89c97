package shop

import (
	"fmt"

	"google.golang.org/grpc/codes"

	"github.com/dpup/storefront/authz"
)

// The workflow error taxonomy. The decision layer in authz never returns
// errors for "no access"; these types are how this package converts a denial
// or a data invariant violation into something the UI can render with a
// specific message. Each carries a status code so the errors package can map
// it for transport boundaries.

// AuthorizationError reports a failed permission check. It names the missing
// permission so callers can render "you lack this capability" rather than a
// generic failure.
type AuthorizationError struct {
	Permission authz.Permission
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("shop: missing permission %q", e.Permission)
}

func (e *AuthorizationError) Code() codes.Code {
	return codes.PermissionDenied
}

// OwnershipMismatchError reports that the caller holds the right permission
// but the target record does not belong to them. Distinct from
// AuthorizationError because the remediation message differs: "you may only
// act on your own records".
type OwnershipMismatchError struct {
	Resource string
	CallerID string
	TargetID string
}

func (e *OwnershipMismatchError) Error() string {
	return fmt.Sprintf("shop: %s belongs to %q, caller %q may only act on their own records",
		e.Resource, e.TargetID, e.CallerID)
}

func (e *OwnershipMismatchError) Code() codes.Code {
	return codes.PermissionDenied
}

// PartialWriteError reports that an order header was persisted but its line
// items were not. Surfaced distinctly so the caller can escalate for manual
// remediation; retrying blindly would duplicate the header. Only possible on
// stores that do not support transactions.
type PartialWriteError struct {
	OrderID string
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("shop: order %q header persisted but line items failed: %v", e.OrderID, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

func (e *PartialWriteError) Code() codes.Code {
	return codes.DataLoss
}

// ReferentialConstraintError reports an attempted hard-delete of a product
// referenced by order history. Recoverable by archiving instead.
type ReferentialConstraintError struct {
	ProductID string
}

func (e *ReferentialConstraintError) Error() string {
	return fmt.Sprintf("shop: product %q is referenced by existing orders and can only be archived", e.ProductID)
}

func (e *ReferentialConstraintError) Code() codes.Code {
	return codes.FailedPrecondition
}

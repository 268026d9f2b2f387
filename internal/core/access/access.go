// Package access decides whether a principal may run an operation.
package access

import "github.com/niksmo/shop/internal/core/domain"

type Policy int

const (
	Public Policy = iota
	StaffOnly
	OwnerOrStaff
)

func (p Policy) String() string {
	switch p {
	case Public:
		return "public"
	case StaffOnly:
		return "staff_only"
	case OwnerOrStaff:
		return "owner_or_staff"
	}
	return "unknown"
}

// Allow reports whether principal passes the policy.
//
// ownerID is consulted only by [OwnerOrStaff].
func Allow(principal domain.Principal, policy Policy, ownerID int64) bool {
	switch policy {
	case Public:
		return true
	case StaffOnly:
		return !principal.Anonymous() && principal.IsStaff
	case OwnerOrStaff:
		if principal.Anonymous() {
			return false
		}
		return principal.IsStaff || principal.ID == ownerID
	}
	return false
}

// Check is like [Allow] but returns [domain.ErrUnauthenticated]
// for a rejected anonymous principal and [domain.ErrForbidden]
// for a rejected authenticated one.
func Check(principal domain.Principal, policy Policy, ownerID int64) error {
	if Allow(principal, policy, ownerID) {
		return nil
	}
	if principal.Anonymous() {
		return domain.ErrUnauthenticated
	}
	return domain.ErrForbidden
}

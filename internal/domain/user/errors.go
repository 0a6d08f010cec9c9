package user

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAssociationNotFound = errors.New("user is not a member of this organisation")
	ErrMemberBanned        = errors.New("user is banned from this organisation")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrCannotModifySelf    = errors.New("you cannot change your own membership")
	ErrLastAdmin           = errors.New("organisation must keep at least one active admin")
)

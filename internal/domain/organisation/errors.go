package organisation

import "errors"

var (
	ErrOrganisationNotFound = errors.New("organisation not found")
	ErrSlugExists           = errors.New("organisation slug already exists")
)

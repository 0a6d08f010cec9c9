package invitation

import (
	"net/url"
	"strings"
)

// BuildInviteLink renders <base>/invite?token=..&email=..&org=..
func BuildInviteLink(baseURL, token, email, organisationID string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	q.Set("org", organisationID)
	return strings.TrimRight(baseURL, "/") + "/invite?" + q.Encode()
}

// ParseInviteLink extracts the three query values BuildInviteLink encodes.
func ParseInviteLink(raw string) (ValidateRequest, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ValidateRequest{}, ErrInvalidInviteLink
	}

	q := u.Query()
	req := ValidateRequest{
		Token:          q.Get("token"),
		Email:          q.Get("email"),
		OrganisationID: q.Get("org"),
	}
	if req.Token == "" || req.Email == "" || req.OrganisationID == "" {
		return ValidateRequest{}, ErrInvalidInviteLink
	}
	return req, nil
}

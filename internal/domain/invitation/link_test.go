package invitation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInviteLink(t *testing.T) {
	link := BuildInviteLink("https://app.taskflow.io/", "abc123", "alice+ops@x.com", "org-1")
	assert.Equal(t, "https://app.taskflow.io/invite?email=alice%2Bops%40x.com&org=org-1&token=abc123", link)
}

func TestParseInviteLink(t *testing.T) {
	link := BuildInviteLink("https://app.taskflow.io", "abc123", "alice+ops@x.com", "org-1")

	req, err := ParseInviteLink(link)
	require.NoError(t, err)
	assert.Equal(t, "abc123", req.Token)
	assert.Equal(t, "alice+ops@x.com", req.Email)
	assert.Equal(t, "org-1", req.OrganisationID)
}

func TestParseInviteLink_MissingParam(t *testing.T) {
	_, err := ParseInviteLink("https://app.taskflow.io/invite?token=abc&org=org-1")
	assert.ErrorIs(t, err, ErrInvalidInviteLink)

	_, err = ParseInviteLink("://bad")
	assert.ErrorIs(t, err, ErrInvalidInviteLink)
}

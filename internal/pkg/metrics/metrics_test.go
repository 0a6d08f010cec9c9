package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordInvitationTransition(t *testing.T) {
	before := testutil.ToFloat64(invitationTransitions.WithLabelValues("expired"))

	RecordInvitationTransition("expired", 3)
	RecordInvitationTransition("expired", 0)

	assert.Equal(t, before+3, testutil.ToFloat64(invitationTransitions.WithLabelValues("expired")))
}

func TestRecordMembershipJoin(t *testing.T) {
	before := testutil.ToFloat64(membershipJoins.WithLabelValues("false"))
	RecordMembershipJoin(false)
	assert.Equal(t, before+1, testutil.ToFloat64(membershipJoins.WithLabelValues("false")))
}

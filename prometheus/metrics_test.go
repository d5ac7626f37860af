package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTokenIssued(t *testing.T) {
	before := testutil.ToFloat64(TokensIssuedCounter)
	RecordTokenIssued()
	RecordTokenIssued()
	assert.Equal(t, before+2, testutil.ToFloat64(TokensIssuedCounter))
}

func TestRecordAuthzDecision(t *testing.T) {
	before := testutil.ToFloat64(AuthzDecisionCounter.WithLabelValues("reject"))
	RecordAuthzDecision("reject")
	assert.Equal(t, before+1, testutil.ToFloat64(AuthzDecisionCounter.WithLabelValues("reject")))
}

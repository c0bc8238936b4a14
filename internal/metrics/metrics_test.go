package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDecode(t *testing.T) {
	ok := testutil.ToFloat64(DecodeTotal.WithLabelValues("Ethernet", ResultOK))
	bytes := testutil.ToFloat64(DecodeBytesTotal)

	ObserveDecode("Ethernet", ResultOK, 60)
	ObserveDecode("Ethernet", ResultOK, 40)

	assert.Equal(t, ok+2, testutil.ToFloat64(DecodeTotal.WithLabelValues("Ethernet", ResultOK)))
	assert.Equal(t, bytes+100, testutil.ToFloat64(DecodeBytesTotal))
}

func TestObserveBuild(t *testing.T) {
	before := testutil.ToFloat64(BuildTotal.WithLabelValues("IPv6", ResultError))
	ObserveBuild("IPv6", ResultError)
	assert.Equal(t, before+1, testutil.ToFloat64(BuildTotal.WithLabelValues("IPv6", ResultError)))
}

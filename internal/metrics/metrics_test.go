package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBeforeInitIsNoop(t *testing.T) {
	// Must not panic or register anything.
	RecordLoad("aws.parameterstore", nil, time.Millisecond)
	RecordReload("aws.parameterstore", errors.New("boom"))
}

func TestRecordAfterInit(t *testing.T) {
	Init()

	RecordLoad("aws.parameterstore", nil, 5*time.Millisecond)
	RecordLoad("aws.parameterstore", errors.New("throttled"), time.Millisecond)
	RecordReload("azure.keyvault", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(sourceLoadTotal.WithLabelValues("aws.parameterstore", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sourceLoadTotal.WithLabelValues("aws.parameterstore", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reloadTotal.WithLabelValues("azure.keyvault", "success")))
}

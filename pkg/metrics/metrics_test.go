package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNilMetricsAbsorbCalls(t *testing.T) {
	var rm *ReconcileMetrics
	rm.RecordOp("create")
	rm.ObserveDuration(time.Second)
	rm.RecordRefcountFloorViolation("PORT")

	var em *ExecutorMetrics
	em.RecordApplyOutcome("success")

	var cm *RecorderMetrics
	cm.ObserveWrite("c", time.Millisecond)
}

func TestDisabledConstructorsReturnNil(t *testing.T) {
	require.False(t, IsEnabled())
	require.Nil(t, NewReconcileMetrics())
	require.Nil(t, NewExecutorMetrics())
	require.Nil(t, NewRecorderMetrics())
	require.Nil(t, Handler())
}

func TestEnabledConstructorsRegisterCollectors(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())

	rm := NewReconcileMetrics()
	require.NotNil(t, rm)
	rm.RecordOp("create")
	rm.ObserveDuration(10 * time.Millisecond)
	rm.RecordRefcountFloorViolation("PORT")

	em := NewExecutorMetrics()
	require.NotNil(t, em)
	em.RecordApplyOutcome("success")

	cm := NewRecorderMetrics()
	require.NotNil(t, cm)
	cm.ObserveWrite("c", time.Microsecond)

	require.NotNil(t, GetRegistry())
	require.NotNil(t, Handler())

	count, err := GetRegistry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, count)
}

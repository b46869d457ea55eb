package metrics_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/metrics"
	yktest "github.com/systmms/ykvc/internal/testutil"
)

func TestInstrumentedExecutorCountsOutcomes(t *testing.T) {
	t.Parallel()

	mock := yktest.NewMockCommandExecutor()
	mock.AddOutput("ykman info", yktest.YkmanInfoOutput)
	mock.AddErrorResponse("ykchalresp", yktest.NoDeviceStderr, 1)
	mock.AddResponse("shred", yktest.MockResponse{Err: fmt.Errorf("not found")})

	m := metrics.New()
	exec := metrics.Instrument(mock, m)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := exec.Execute(ctx, "ykman", "info")
		require.NoError(t, err)
	}
	_, _, err := exec.Execute(ctx, "ykchalresp", "-2", "secret passphrase")
	require.Error(t, err)
	require.Error(t, exec.Run(ctx, "shred", "-u", "k.key"))

	reg := m.Registry()
	n, err := testutil.GatherAndCount(reg, "ykvc_tool_invocations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = testutil.GatherAndCount(reg, "ykvc_tool_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stdout, _, err := exec.Execute(ctx, "ykman", "info")
	require.NoError(t, err)
	assert.Equal(t, yktest.YkmanInfoOutput, string(stdout), "output passes through unchanged")
	assert.Equal(t, 5, mock.CallCount())
	assert.Len(t, mock.GetCalls("ykman"), 3)
}

func TestToolOutcomeLabels(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveTool("ykman", 0, nil)
	m.ObserveTool("ykman", 0, &yktest.ExitError{Code: 1})
	m.ObserveTool("ykchalresp", 0, &yktest.ExitError{Code: -1})
	m.ObserveTool("gshred", 0, fmt.Errorf("exec: not found"))

	want := `
# HELP ykvc_tool_invocations_total External tool invocations by tool and outcome
# TYPE ykvc_tool_invocations_total counter
ykvc_tool_invocations_total{outcome="exit_error",tool="ykchalresp"} 1
ykvc_tool_invocations_total{outcome="exit_error",tool="ykman"} 1
ykvc_tool_invocations_total{outcome="start_error",tool="gshred"} 1
ykvc_tool_invocations_total{outcome="success",tool="ykman"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "ykvc_tool_invocations_total"))
}

func TestObserveOperationUsesErrorKind(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveOperation("generate", nil)
	m.ObserveOperation("generate", errors.SlotNotProgrammed())
	m.ObserveOperation("generate", fmt.Errorf("wrapped: %w", errors.SlotNotProgrammed()))
	m.ObserveOperation("slot2 program", errors.Cancelled())

	want := `
# HELP ykvc_operations_total ykvc commands by name and outcome
# TYPE ykvc_operations_total counter
ykvc_operations_total{operation="generate",outcome="slot_not_programmed"} 2
ykvc_operations_total{operation="generate",outcome="success"} 1
ykvc_operations_total{operation="slot2 program",outcome="cancelled"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "ykvc_operations_total"))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveOperation("info", nil)

	path := filepath.Join(t.TempDir(), "ykvc.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ykvc_operations_total{operation="info",outcome="success"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	m.ObserveTool("ykman", 0, nil)
	m.ObserveOperation("info", nil)
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.Nil(t, m.Registry())

	mock := yktest.NewMockCommandExecutor()
	assert.Same(t, mock, metrics.Instrument(mock, nil))
}

func TestWriteTextfileEmptyPath(t *testing.T) {
	t.Parallel()

	assert.NoError(t, metrics.New().WriteTextfile(""))
}

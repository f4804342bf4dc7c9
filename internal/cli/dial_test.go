package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dhd/internal/config"
	"github.com/roach88/dhd/internal/engine"
	"github.com/roach88/dhd/internal/metrics"
)

type dialResponse struct {
	Status  string     `json:"status"`
	Data    DialResult `json:"data"`
	Error   *CLIError  `json:"error"`
	Attempt string     `json:"attempt"`
}

func decodeDial(t *testing.T, out string) dialResponse {
	t.Helper()
	var resp dialResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

// dialWithTokens runs the dial command with fixed attempt tokens.
func dialWithTokens(t *testing.T, format string, args []string, tokens ...string) (string, error) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	opts := &DialOptions{
		RootOptions: &RootOptions{Format: format, Config: cfg},
		Tokens:      engine.NewFixedGenerator(tokens...),
	}
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	err = runDial(opts, args, cmd)
	return buf.String(), err
}

func TestDial_TypedCoordinatesReachDestination(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "dial", "gdc", "afe", "--format", "json")
	require.NoError(t, err, out)

	resp := decodeDial(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.True(t, resp.Data.Reached)
	require.NotNil(t, resp.Data.Destination)
	assert.Equal(t, "abydos", resp.Data.Destination.ID)
	assert.Equal(t, "GDCAFEA", resp.Data.Address)
	assert.Equal(t, "active", resp.Data.Status)
	assert.NotEmpty(t, resp.Data.Attempt)
	assert.Equal(t, resp.Data.Attempt, resp.Attempt)
}

func TestDial_FixedTokenTrace(t *testing.T) {
	isolate(t)

	out, err := dialWithTokens(t, "json", []string{"BRT5QX"}, "dial-1")
	require.NoError(t, err, out)

	resp := decodeDial(t, out)
	assert.Equal(t, "dial-1", resp.Data.Attempt)
	require.NotEmpty(t, resp.Data.Trace)
	assert.Equal(t, "002 dial-1 attempt started address=BRT5QXA", resp.Data.Trace[0])
	assert.Equal(t, "dial-1 result reached=true destination=chulak", resp.Data.Trace[len(resp.Data.Trace)-3][4:])

	var activations int
	for _, line := range resp.Data.Trace {
		if strings.Contains(line, " activation ") {
			activations++
		}
	}
	assert.Equal(t, 7, activations)
}

func TestDial_Destination(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "dial", "--destination", "vorash", "--format", "json")
	require.NoError(t, err, out)

	resp := decodeDial(t, out)
	assert.True(t, resp.Data.Reached)
	assert.Equal(t, "MPQ4X2KA", resp.Data.Address)
	assert.Equal(t, "vorash", resp.Data.Destination.ID)
}

func TestDial_UnknownAddressEndsIdle(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "dial", "ABCDEF", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeDial(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_NOT_REACHED", resp.Error.Code)
	assert.False(t, resp.Data.Reached)
	assert.Nil(t, resp.Data.Destination)
	assert.Equal(t, "idle", resp.Data.Status)
}

func TestDial_InvalidGlyphRejected(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "dial", "GDC!FE", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_GLYPH", resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok, "details: %v", resp.Error.Details)
	assert.Equal(t, "!", details["glyph"])
	assert.NotContains(t, details, "suggestions", "unparseable input has no suggestions")
}

func TestDial_PatternMismatchSuggestsNearest(t *testing.T) {
	isolate(t)
	t.Setenv("DHD_ADDRESS_MIN_LENGTH", "7")

	out, _, err := execute(t, "dial", "GDCAFE", "--format", "json")
	require.Error(t, err)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Suggestions []SuggestionView `json:"suggestions"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "PATTERN_MISMATCH", resp.Error.Code)
	require.NotEmpty(t, resp.Error.Details.Suggestions)
	assert.Equal(t, "abydos", resp.Error.Details.Suggestions[0].ID)
	assert.Equal(t, 0, resp.Error.Details.Suggestions[0].Distance)
}

func TestDial_TextOutput(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "dial", "GDCAFE")
	require.NoError(t, err, out)
	assert.Contains(t, out, "status dialing")
	assert.Contains(t, out, "chevron 7")
	assert.Contains(t, out, "connected to")
	assert.Contains(t, out, "Abydos (abydos)")
}

func TestDial_TextOutputShowsAlert(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "dial", "GDC!FE")
	require.Error(t, err)
	assert.Contains(t, out, "Input Error")
	assert.Contains(t, out, "Field value is invalid")
	assert.Contains(t, out, "rejected")
}

func TestDial_HoldThenShutdown(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "dial", "GDCAFE", "--hold", "10ms", "--format", "json")
	require.NoError(t, err, out)

	resp := decodeDial(t, out)
	assert.True(t, resp.Data.Reached)
	assert.Equal(t, "idle", resp.Data.Status)

	var statuses []string
	for _, line := range resp.Data.Trace {
		if _, detail, ok := strings.Cut(line, " status "); ok {
			statuses = append(statuses, detail)
		}
	}
	assert.Equal(t, []string{"dialing", "engaged", "active", "shutdown", "idle"}, statuses)
}

func TestDial_ArgumentErrors(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "dial")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "dial", "GDCAFE", "--destination", "abydos")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "dial", "--destination", "atlantis")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown destination: atlantis")
}

func TestDial_MissingCatalogIsCommandError(t *testing.T) {
	isolate(t)
	t.Setenv("DHD_CATALOG_DIR", t.TempDir())

	_, _, err := execute(t, "dial", "GDCAFE")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load catalog")
}

func TestDial_WithMetricsServer(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "dial", "GDCAFE", "--metrics-addr", "127.0.0.1:0", "--format", "json")
	require.NoError(t, err, out)
	assert.True(t, decodeDial(t, out).Data.Reached)
}

func TestServeMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	addr, stop, err := serveMetrics("127.0.0.1:0", metrics.New(), logger)
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dhd_gate_status")
}

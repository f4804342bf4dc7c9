package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dhd/internal/gate"
)

func decodeResponse(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}

func TestNewFormatter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	f := newFormatter(&RootOptions{Format: "json", Verbose: true}, cmd)
	assert.True(t, f.JSON())
	assert.True(t, f.Verbose)
	assert.Same(t, out, f.Writer)
	assert.Same(t, errOut, f.ErrWriter)
}

func TestOutputFormatter_SuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]string{"destination": "abydos"}))

	resp := decodeResponse(t, buf)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]interface{}{"destination": "abydos"}, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Contains(t, buf.String(), "\n  \"status\"", "responses are indented")
}

func TestOutputFormatter_SuccessText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("catalog valid"))
	assert.Equal(t, "catalog valid\n", buf.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Fail("E_NOT_REACHED", "destination not reached", map[string]bool{"reached": false}, "dial-1"))

	resp := decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "dial-1", resp.Attempt)
	assert.Equal(t, map[string]interface{}{"reached": false}, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_NOT_REACHED", resp.Error.Code)
}

func TestOutputFormatter_ErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error("E_CATALOG_LOAD", "no catalog files", nil))

	resp := decodeResponse(t, buf)
	assert.Equal(t, "error", resp.Status)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CATALOG_LOAD", resp.Error.Code)
	assert.Equal(t, "no catalog files", resp.Error.Message)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_ErrorText(t *testing.T) {
	details := map[string]string{"pattern": "^[A-Z]+$", "min": "7"}

	t.Run("quiet", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}

		require.NoError(t, f.Error("PATTERN_MISMATCH", "address rejected", details))
		assert.Contains(t, buf.String(), "Error [PATTERN_MISMATCH]: address rejected")
		assert.NotContains(t, buf.String(), "Details:")
	})

	t.Run("verbose", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

		require.NoError(t, f.Error("PATTERN_MISMATCH", "address rejected", details))
		assert.Contains(t, buf.String(), "Details:\n  min: 7\n  pattern: ^[A-Z]+$\n")
	})
}

func TestOutputFormatter_GateError(t *testing.T) {
	gerr := &gate.Error{
		Code:    gate.ErrCodeInvalidGlyph,
		Message: "glyph is not part of the dialing alphabet",
		Details: map[string]string{"glyph": "!", "index": "3"},
	}

	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.GateError(gerr, map[string]interface{}{"index": "override", "hint": "drop it"}))

	resp := decodeResponse(t, buf)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_GLYPH", resp.Error.Code)
	assert.Equal(t, map[string]interface{}{"glyph": "!", "index": "override", "hint": "drop it"}, resp.Error.Details)
}

func TestOutputFormatter_GateErrorWithoutDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.GateError(gate.NewError(gate.ErrCodeEmptyAddress, "address must contain at least one glyph"), nil))

	resp := decodeResponse(t, buf)
	require.NotNil(t, resp.Error)
	assert.Nil(t, resp.Error.Details)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			f.VerboseLog("Loading catalog %s", "gates.cue")

			if tt.wantLog {
				assert.Equal(t, "Loading catalog gates.cue\n", buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("dialing %s", "abydos")

	assert.Empty(t, out.String(), "verbose logs must not corrupt JSON output")
	assert.Contains(t, errOut.String(), "dialing abydos")
	assert.Same(t, errOut, f.errWriter())
}

func TestDetailLines(t *testing.T) {
	assert.Equal(t, []string{"a: 1", "b: x"}, detailLines(map[string]interface{}{"b": "x", "a": 1}))
	assert.Equal(t, []string{"from: idle", "to: active"}, detailLines(map[string]string{"to": "active", "from": "idle"}))
	assert.Equal(t, []string{"[1 2]"}, detailLines([]int{1, 2}))
}

func TestCLIResponse_AttemptOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(CLIResponse{Status: "ok"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "attempt")

	data, err = json.Marshal(CLIResponse{Status: "ok", Attempt: "dial-1"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"attempt":"dial-1"`)
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")

	plain := NewExitError(ExitCommandError, "journal not found")
	assert.Equal(t, "journal not found", plain.Error())
	assert.Nil(t, plain.Unwrap())

	wrapped := WrapExitError(ExitCommandError, "failed to open journal", cause)
	assert.Equal(t, "failed to open journal: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit_failure", NewExitError(ExitFailure, "not reached"), ExitFailure},
		{"command_error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped_exit_error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "bad")), ExitCommandError},
		{"plain_error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/enrollcheck/internal/pipeline"
)

const validateFixture = `{"event_type": "edx.course.enrollment.validated", "event_source": "server", "time": "2013-09-01T00:00:01.123456+00:00", "event": {"course_id": "foo/bar/baz", "user_id": 21, "is_active": true, "created": "2013-04-01T00:00:01.123456"}}
{"event_type": "edx.course.enrollment.activated", "event_source": "server", "time": "2013-09-01T00:00:02.123456+00:00", "event": {"course_id": "foo/bar/baz", "user_id": 22, "mode": "honor"}}
`

func writeTrackingLog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tracking.log-20130901")
	require.NoError(t, os.WriteFile(path, []byte(validateFixture), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestValidateCommand(t *testing.T) {
	source := writeTrackingLog(t)
	outputRoot := t.TempDir()

	stdout, _, err := execute(t,
		"validate",
		"--source", source,
		"--interval", "2013-01-01-2014-10-10",
		"--output-root", outputRoot,
		"--generate-before",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "synthesized:     1")

	records, err := pipeline.ReadGzipLines(
		filepath.Join(outputRoot, "synthetic_enroll-20130401.tsv.gz"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0], "start => validate(active)")
}

func TestValidateCommandJSONFormat(t *testing.T) {
	source := writeTrackingLog(t)

	stdout, _, err := execute(t,
		"--format", "json",
		"validate",
		"--source", source,
		"--interval", "2013-01-01-2014-10-10",
		"--output-root", t.TempDir(),
		"--generate-before",
	)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data)
}

func TestValidateCommandConfigFile(t *testing.T) {
	source := writeTrackingLog(t)
	outputRoot := t.TempDir()

	configPath := filepath.Join(t.TempDir(), "enrollcheck.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"source: "+source+"\n"+
			"interval: 2013-01-01-2014-10-10\n"+
			"output_root: "+outputRoot+"\n"+
			"generate_before: true\n"), 0o644))

	stdout, _, err := execute(t, "validate", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "synthesized:     1")
}

func TestValidateCommandMissingSource(t *testing.T) {
	_, _, err := execute(t,
		"validate",
		"--interval", "2013-09-01",
		"--output-root", t.TempDir(),
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommandBadInterval(t *testing.T) {
	_, _, err := execute(t,
		"validate",
		"--source", t.TempDir(),
		"--interval", "whenever",
		"--output-root", t.TempDir(),
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

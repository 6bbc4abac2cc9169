package checks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCheck(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalCheck = `name: disk-root
command: df -h /
schedule: "*/15 * * * *"
llm:
  prompt: Judge disk usage.
`

func TestLoadFileDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeCheck(t, dir, "disk.yaml", minimalCheck)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	check := loaded[0]
	assert.Equal(t, "disk-root", check.Name)
	assert.True(t, check.Enabled)
	assert.Equal(t, DefaultTimeout, check.Timeout)
	assert.False(t, check.Sudo)
	assert.Equal(t, PriorityDefault, check.Notify.Priority)
	assert.Equal(t, path, check.SourcePath)
}

func TestLoadFileExplicitDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeCheck(t, dir, "disk.yaml", minimalCheck+"enabled: false\ntimeout: 120\n")

	loaded, err := LoadFile(path)
	require.NoError(t, err)

	assert.False(t, loaded[0].Enabled)
	assert.Equal(t, 120, loaded[0].Timeout)
}

func TestLoadFileMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := writeCheck(t, dir, "bad.yaml", "name: partial\n")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command, schedule")
}

func TestLoadFileInvalidPriority(t *testing.T) {
	dir := t.TempDir()
	path := writeCheck(t, dir, "bad.yaml", minimalCheck+"notify:\n  priority: shouty\n")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid priority")
}

func TestLoadFileMatrixExpansion(t *testing.T) {
	dir := t.TempDir()
	path := writeCheck(t, dir, "services.yaml", `name: service-${svc}
command: systemctl is-active ${svc}
schedule: "*/5 * * * *"
llm:
  prompt: Is ${svc} healthy?
notify:
  tags: ["${svc}", "systemd"]
matrix:
  svc: [nginx, postgresql]
`)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "service-nginx", loaded[0].Name)
	assert.Equal(t, "systemctl is-active nginx", loaded[0].Command)
	assert.Equal(t, "Is nginx healthy?", loaded[0].LLM.Prompt)
	assert.Equal(t, []string{"nginx", "systemd"}, loaded[0].Notify.Tags)

	assert.Equal(t, "service-postgresql", loaded[1].Name)
	assert.Equal(t, []string{"postgresql", "systemd"}, loaded[1].Notify.Tags)
}

func TestLoadFileMatrixCartesianProduct(t *testing.T) {
	dir := t.TempDir()
	path := writeCheck(t, dir, "matrix.yaml", `name: ${kind}-${host}
command: "check ${kind} on ${host}"
schedule: "0 * * * *"
llm:
  prompt: p
matrix:
  host: [alpha, beta]
  kind: [disk, load]
`)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 4)

	names := make([]string, len(loaded))
	for i, check := range loaded {
		names[i] = check.Name
	}
	assert.ElementsMatch(t, []string{"disk-alpha", "disk-beta", "load-alpha", "load-beta"}, names)
}

func TestLoadFileMatrixUnknownVariableKept(t *testing.T) {
	dir := t.TempDir()
	path := writeCheck(t, dir, "matrix.yaml", `name: svc-${svc}
command: "echo ${svc} ${undefined}"
schedule: "0 * * * *"
llm:
  prompt: p
matrix:
  svc: [one]
`)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "echo one ${undefined}", loaded[0].Command)
}

func TestLoadFileMatrixEmptyList(t *testing.T) {
	dir := t.TempDir()
	path := writeCheck(t, dir, "matrix.yaml", `name: n-${x}
command: c
schedule: "0 * * * *"
matrix:
  x: []
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix.x cannot be empty")
}

func TestLoadDirSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeCheck(t, dir, "b.yaml", "name: bravo\ncommand: c\nschedule: \"0 * * * *\"\n")
	writeCheck(t, dir, "a.yml", "name: alpha\ncommand: c\nschedule: \"0 * * * *\"\n")
	writeCheck(t, dir, "notes.txt", "not a check")

	loaded, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "alpha", loaded[0].Name)
	assert.Equal(t, "bravo", loaded[1].Name)
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checks directory not found")
}

func TestSetEnabled(t *testing.T) {
	dir := t.TempDir()
	writeCheck(t, dir, "disk.yaml", minimalCheck)

	require.NoError(t, SetEnabled(dir, "disk-root", false))

	loaded, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.False(t, loaded[0].Enabled)

	// Everything else survives the rewrite.
	assert.Equal(t, "df -h /", loaded[0].Command)
	assert.Equal(t, "Judge disk usage.", loaded[0].LLM.Prompt)

	require.NoError(t, SetEnabled(dir, "disk-root", true))

	loaded, err = LoadDir(dir)
	require.NoError(t, err)
	assert.True(t, loaded[0].Enabled)
}

func TestSetEnabledUnknownCheck(t *testing.T) {
	dir := t.TempDir()
	writeCheck(t, dir, "disk.yaml", minimalCheck)

	err := SetEnabled(dir, "nope", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check not found")
}

func TestValidate(t *testing.T) {
	valid := Check{
		Name:     "disk-root",
		Command:  "df /",
		Schedule: "*/15 * * * *",
		Timeout:  30,
		LLM:      LLMConfig{Prompt: "p"},
		Notify:   NotifyConfig{Priority: PriorityDefault},
	}
	assert.Empty(t, Validate(&valid))

	broken := valid
	broken.Schedule = "61 * * * *"
	broken.Timeout = 0
	problems := Validate(&broken)
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], "timeout must be positive")
	assert.Contains(t, problems[1], "invalid schedule")
}

func TestHistoryContextFallback(t *testing.T) {
	check := Check{}
	assert.Equal(t, 3, check.HistoryContext(3))

	zero := 0
	check.LLM.HistoryContext = &zero
	assert.Equal(t, 0, check.HistoryContext(3))
}

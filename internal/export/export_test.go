package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	exporter *Exporter
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		exporter: &Exporter{
			ConfigDir:    t.TempDir(),
			FunctionsDir: t.TempDir(),
			TemplatesDir: t.TempDir(),
		},
		root: filepath.Join(t.TempDir(), "bundle"),
	}
	return f
}

func (f *fixture) writeConfig(t *testing.T, name string) {
	t.Helper()
	path := filepath.Join(f.exporter.ConfigDir, name+"_assistant_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"`+name+`"}`), 0o644))
}

func (f *fixture) writeErrorSpecs(t *testing.T) {
	t.Helper()
	path := filepath.Join(f.exporter.ConfigDir, "function_error_specs.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func (f *fixture) writeTemplate(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(f.exporter.TemplatesDir, "main_template.py")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExportFullLayout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeConfig(t, "helper")
	f.writeErrorSpecs(t)
	f.writeTemplate(t, `start("ASSISTANT_NAME")`)
	require.NoError(t, os.WriteFile(
		filepath.Join(f.exporter.FunctionsDir, "user_functions.py"),
		[]byte("def greet(): pass\n"), 0o644))

	require.NoError(t, f.exporter.Export("helper", f.root))

	for _, rel := range []string{
		"config/helper_assistant_config.json",
		"config/function_error_specs.json",
		"functions/user_functions.py",
		"main.py",
	} {
		_, err := os.Stat(filepath.Join(f.root, rel))
		require.NoError(t, err, rel)
	}

	launcher, err := os.ReadFile(filepath.Join(f.root, "main.py"))
	require.NoError(t, err)
	require.Equal(t, `start("helper")`, string(launcher))
}

func TestExportWithoutUserFunctions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeConfig(t, "helper")
	f.writeErrorSpecs(t)
	f.writeTemplate(t, "pass")

	require.NoError(t, f.exporter.Export("helper", f.root))

	_, err := os.Stat(filepath.Join(f.root, "functions", "user_functions.py"))
	require.True(t, os.IsNotExist(err))
}

func TestExportMissingConfigStopsBeforeLauncher(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeErrorSpecs(t)
	f.writeTemplate(t, "pass")

	err := f.exporter.Export("helper", f.root)
	require.Error(t, err)

	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	require.Equal(t, "copying configuration files", exportErr.Step)
	require.Contains(t, exportErr.Path, "helper_assistant_config.json")

	// Directories were already created; no artifacts past the failing step.
	_, err = os.Stat(filepath.Join(f.root, "functions"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.root, "main.py"))
	require.True(t, os.IsNotExist(err))
}

func TestExportMissingTemplate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeConfig(t, "helper")
	f.writeErrorSpecs(t)

	err := f.exporter.Export("helper", f.root)
	require.Error(t, err)

	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	require.Equal(t, "generating launcher", exportErr.Step)

	// Config files copied before the failure stay in place.
	_, statErr := os.Stat(filepath.Join(f.root, "config", "helper_assistant_config.json"))
	require.NoError(t, statErr)
}

func TestExportIdempotentDirectories(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeConfig(t, "helper")
	f.writeErrorSpecs(t)
	f.writeTemplate(t, "pass")

	require.NoError(t, f.exporter.Export("helper", f.root))
	require.NoError(t, f.exporter.Export("helper", f.root))
}

func TestExportReplacesEveryPlaceholder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.writeConfig(t, "helper")
	f.writeErrorSpecs(t)
	f.writeTemplate(t, "a = \"ASSISTANT_NAME\"\nb = \"ASSISTANT_NAME\"\n")

	require.NoError(t, f.exporter.Export("helper", f.root))

	launcher, err := os.ReadFile(filepath.Join(f.root, "main.py"))
	require.NoError(t, err)
	require.Equal(t, "a = \"helper\"\nb = \"helper\"\n", string(launcher))
}

func TestDefaultRoot(t *testing.T) {
	t.Parallel()

	require.Equal(t, filepath.Join("export", "helper"), DefaultRoot("helper"))
}

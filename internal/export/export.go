// Package export packages a stored assistant's configuration and code into
// a standalone runnable directory.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PlaceholderToken is the literal marker replaced with the assistant
	// name when the launcher script is generated from the template.
	PlaceholderToken = "ASSISTANT_NAME"

	errorSpecsFile  = "function_error_specs.json"
	userFunctionsPy = "user_functions.py"
	templateFile    = "main_template.py"
	launcherFile    = "main.py"
	assistantSuffix = "_assistant_config.json"
)

// ExportError reports the step an export failed at and, when a source file
// was missing, its path.
type ExportError struct {
	Step string
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("export failed at %s (%s): %v", e.Step, e.Path, e.Err)
	}
	return fmt.Sprintf("export failed at %s: %v", e.Step, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Exporter copies a named assistant's artifacts out of the application
// directories into an export root.
type Exporter struct {
	// ConfigDir holds per-assistant config files and the shared error specs.
	ConfigDir string
	// FunctionsDir optionally holds user-defined function source.
	FunctionsDir string
	// TemplatesDir holds the launcher template.
	TemplatesDir string
}

// DefaultRoot returns the conventional export destination for an assistant.
func DefaultRoot(name string) string {
	return filepath.Join("export", name)
}

// Export packages the named assistant under root:
//
//	root/config/<name>_assistant_config.json
//	root/config/function_error_specs.json
//	root/functions/user_functions.py   (only when present)
//	root/main.py                       (template with the name substituted)
//
// Directory creation is idempotent. A failure stops the export at the
// failing step; artifacts already copied are left in place.
func (e *Exporter) Export(name, root string) error {
	configDst := filepath.Join(root, "config")
	functionsDst := filepath.Join(root, "functions")

	for _, dir := range []string{configDst, functionsDst} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ExportError{Step: "creating directories", Path: dir, Err: err}
		}
	}

	configName := name + assistantSuffix
	required := []struct{ src, dst string }{
		{filepath.Join(e.ConfigDir, configName), filepath.Join(configDst, configName)},
		{filepath.Join(e.ConfigDir, errorSpecsFile), filepath.Join(configDst, errorSpecsFile)},
	}
	for _, f := range required {
		if err := copyFile(f.src, f.dst); err != nil {
			return &ExportError{Step: "copying configuration files", Path: f.src, Err: err}
		}
	}

	// User function source is an optional artifact; absence is not an error.
	userSrc := filepath.Join(e.FunctionsDir, userFunctionsPy)
	if _, err := os.Stat(userSrc); err == nil {
		if err := copyFile(userSrc, filepath.Join(functionsDst, userFunctionsPy)); err != nil {
			return &ExportError{Step: "copying user functions", Path: userSrc, Err: err}
		}
	}

	templatePath := filepath.Join(e.TemplatesDir, templateFile)
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return &ExportError{Step: "generating launcher", Path: templatePath, Err: err}
	}
	launcher := strings.ReplaceAll(string(template), PlaceholderToken, name)
	if err := os.WriteFile(filepath.Join(root, launcherFile), []byte(launcher), 0o644); err != nil {
		return &ExportError{Step: "generating launcher", Err: err}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Close()
}

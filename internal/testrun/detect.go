package testrun

import (
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/ankittk/taskpilot/pkg/models"
)

// DetectCommands resolves the command line for each test type, in priority
// order: explicit commands in the style profile's testing policy, explicit
// overrides from local tool configuration, then auto-detection from project
// manifests. Detection never fails; an empty map means tests are simply
// unavailable.
func DetectCommands(dir string, style *models.CodeStyleProfile, overrides map[string]string) map[string]string {
	cmds := make(map[string]string)

	if style != nil && style.Testing != nil {
		for typ, cmd := range style.Testing.Commands {
			if cmd != "" {
				cmds[typ] = cmd
			}
		}
	}
	for typ, cmd := range overrides {
		if _, taken := cmds[typ]; !taken && cmd != "" {
			cmds[typ] = cmd
		}
	}
	if len(cmds) > 0 {
		return cmds
	}

	if detected := detectNode(dir); len(detected) > 0 {
		return detected
	}
	if hasAny(dir, "pytest.ini", "setup.cfg", "pyproject.toml", "tox.ini") {
		return map[string]string{models.TestTypeUnit: "python -m pytest"}
	}
	if hasAny(dir, "go.mod") {
		return map[string]string{models.TestTypeUnit: "go test ./..."}
	}
	return cmds
}

func hasAny(dir string, names ...string) bool {
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// detectNode inspects package.json: explicit test scripts first, then known
// framework dependencies with zero-config invocations.
func detectNode(dir string) map[string]string {
	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}
	pkg := string(raw)
	cmds := make(map[string]string)

	scriptTypes := []struct{ script, typ string }{
		{"test:unit", models.TestTypeUnit},
		{"test", models.TestTypeUnit},
		{"test:integration", models.TestTypeIntegration},
		{"test:e2e", models.TestTypeE2E},
	}
	for _, st := range scriptTypes {
		if gjson.Get(pkg, "scripts."+st.script).Exists() {
			if _, taken := cmds[st.typ]; !taken {
				cmds[st.typ] = "npm run " + st.script
			}
		}
	}
	if len(cmds) > 0 {
		return cmds
	}

	for _, fw := range []struct{ dep, cmd string }{
		{"jest", "npx jest"},
		{"vitest", "npx vitest run"},
		{"mocha", "npx mocha"},
	} {
		if gjson.Get(pkg, "devDependencies."+fw.dep).Exists() ||
			gjson.Get(pkg, "dependencies."+fw.dep).Exists() {
			return map[string]string{models.TestTypeUnit: fw.cmd}
		}
	}
	return nil
}

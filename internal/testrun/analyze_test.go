package testrun

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ankittk/taskpilot/pkg/models"
)

func styleWithTriggers(t models.TestTriggers) *models.CodeStyleProfile {
	return &models.CodeStyleProfile{Testing: &models.TestingPolicy{Triggers: t}}
}

func TestDetermineRequirements_apiChange(t *testing.T) {
	t.Parallel()
	style := styleWithTriggers(models.TestTriggers{APIChanged: true})
	req := DetermineRequirements([]string{"src/api/routes/users.ts"}, "", style)
	if !req.Required {
		t.Fatal("expected required=true for route file change")
	}
	if !strings.Contains(req.Reason, "API") {
		t.Errorf("reason: %q", req.Reason)
	}
	if diff := cmp.Diff([]string{models.TestTypeUnit}, req.Types); diff != "" {
		t.Errorf("types (-want +got):\n%s", diff)
	}
}

func TestDetermineRequirements_docsOnly(t *testing.T) {
	t.Parallel()
	req := DetermineRequirements([]string{"README.md"}, "+# docs update\n", nil)
	if req.Required {
		t.Errorf("expected required=false for docs-only change: %+v", req)
	}
}

func TestDetermineRequirements_logicChange(t *testing.T) {
	t.Parallel()
	req := DetermineRequirements([]string{"src/services/auth.ts"}, "", nil)
	if !req.Required {
		t.Fatal("expected required=true for service file change")
	}
	if !strings.Contains(req.Reason, "logic") {
		t.Errorf("reason: %q", req.Reason)
	}
}

func TestDetermineRequirements_bugfixNeedsPolicy(t *testing.T) {
	t.Parallel()
	diff := "+// fix the login bug\n+return nil\n"

	// Without a policy the bugfix heuristic never fires.
	req := DetermineRequirements([]string{"main.go"}, diff, nil)
	if req.Required {
		t.Errorf("bugfix heuristic fired without policy: %+v", req)
	}

	style := styleWithTriggers(models.TestTriggers{BugfixDetected: true})
	req = DetermineRequirements([]string{"main.go"}, diff, style)
	if !req.Required {
		t.Fatal("expected required=true with bugfix trigger enabled")
	}
	if !strings.Contains(req.Reason, "bugfix") {
		t.Errorf("reason: %q", req.Reason)
	}
}

func TestDetermineRequirements_dbQueryDiff(t *testing.T) {
	t.Parallel()
	diff := `+  rows, err := db.Query("SELECT id FROM users WHERE email = $1", email)`
	style := styleWithTriggers(models.TestTriggers{DBQueryChanged: true})
	req := DetermineRequirements([]string{"cmd/main.go"}, diff, style)
	if !req.Required {
		t.Errorf("expected required=true for query diff: %+v", req)
	}
}

func TestDetermineRequirements_multipleTriggersConcatenated(t *testing.T) {
	t.Parallel()
	style := styleWithTriggers(models.TestTriggers{APIChanged: true, LogicChanged: true})
	req := DetermineRequirements([]string{"src/api/routes/users.ts", "src/services/auth.ts"}, "", style)
	if !req.Required {
		t.Fatal("expected required=true")
	}
	if !strings.Contains(req.Reason, "API") || !strings.Contains(req.Reason, "logic") {
		t.Errorf("reason should mention both triggers: %q", req.Reason)
	}
}

func TestDetermineRequirements_requiredTypesFromPolicy(t *testing.T) {
	t.Parallel()
	style := &models.CodeStyleProfile{Testing: &models.TestingPolicy{
		Triggers:      models.TestTriggers{LogicChanged: true},
		RequiredTypes: []string{models.TestTypeUnit, models.TestTypeIntegration},
	}}
	req := DetermineRequirements([]string{"lib/core/calc.py"}, "", style)
	if !req.Required {
		t.Fatal("expected required=true")
	}
	want := []string{models.TestTypeUnit, models.TestTypeIntegration}
	if diff := cmp.Diff(want, req.Types); diff != "" {
		t.Errorf("types (-want +got):\n%s", diff)
	}
}

func TestDetermineRequirements_filesFromDiff(t *testing.T) {
	t.Parallel()
	diff := `diff --git a/src/services/auth.ts b/src/services/auth.ts
index 1111111..2222222 100644
--- a/src/services/auth.ts
+++ b/src/services/auth.ts
@@ -1,3 +1,4 @@
+const x = 1;
`
	req := DetermineRequirements(nil, diff, nil)
	if !req.Required {
		t.Errorf("expected file list recovered from diff: %+v", req)
	}
}

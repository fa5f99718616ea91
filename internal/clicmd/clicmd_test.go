package clicmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSource = `DEFINE EBITDA AS 10000000

COVENANT MaxLeverage
  REQUIRES Leverage <= 4.5x
  TESTED QUARTERLY

BASKET GeneralBasket
  CAPACITY $35000000
`

func writeSource(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "facility.proviso")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// runRoot executes the command tree with args, capturing whatever the
// command writes to os.Stdout — every clicmd command prints via
// fmt.Print/Println directly rather than through cobra's io.Writer, so
// stdout must be swapped at the os level to observe it.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	saved := os.Stdout
	os.Stdout = w

	root := Root()
	root.SetArgs(args)
	runErr := root.Execute()

	os.Stdout = saved
	w.Close()
	out, _ := io.ReadAll(r)
	return string(out), runErr
}

func TestParseCommand_ValidSourceSucceeds(t *testing.T) {
	path := writeSource(t, sampleSource)
	_, err := runRoot(t, "parse", path)
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
}

func TestParseCommand_InvalidSourceFails(t *testing.T) {
	path := writeSource(t, "COVENANT MaxLeverage REQUIRES\n")
	_, err := runRoot(t, "parse", path)
	if err == nil {
		t.Fatalf("expected parse of malformed source to fail")
	}
}

func TestValidateCommand_ReportsValidSource(t *testing.T) {
	path := writeSource(t, sampleSource)
	_, err := runRoot(t, "validate", path, "--quiet")
	if err != nil {
		t.Fatalf("expected validate to succeed on well-formed source, got %v", err)
	}
}

func TestCheckCommand_WithoutFinancialDataReportsUndefinedMetric(t *testing.T) {
	path := writeSource(t, sampleSource)
	_, err := runRoot(t, "check", path)
	if err == nil {
		t.Fatalf("expected check to fail when Leverage has no financial data bound")
	}
}

func TestRenderCommand_ProducesArticleHeaders(t *testing.T) {
	path := writeSource(t, sampleSource)
	out, err := runRoot(t, "render", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Article 7.11") {
		t.Fatalf("expected rendered output to include Article 7.11, got:\n%s", out)
	}
}

package loader

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const unoconvTimeout = 10 * time.Minute

// TransformExcelToCsv converts an Excel workbook to CSV through unoconv.
// One CSV blob per sheet, keyed by sheet name; a single-sheet workbook
// comes back under "Sheet1".
func TransformExcelToCsv(input []byte, ext string) (map[string][]byte, error) {
	if _, err := exec.LookPath("unoconv"); err != nil {
		return nil, fmt.Errorf("unoconv not found in PATH: %w", err)
	}

	workDir, workbook, err := stageWorkbook(input, ext)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	if err := runUnoconv(workDir, workbook); err != nil {
		return nil, err
	}
	return collectSheets(workDir)
}

// stageWorkbook writes the workbook into a private temp directory, since
// unoconv emits its CSV output next to the input file.
func stageWorkbook(input []byte, ext string) (dir string, path string, err error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", "", fmt.Errorf("nanoid: %w", err)
	}
	dir = filepath.Join(os.TempDir(), "sna-excel-"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("mkdir tmp: %w", err)
	}
	path = filepath.Join(dir, "input."+ext)
	if err := os.WriteFile(path, input, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("write excel: %w", err)
	}
	return dir, path, nil
}

func runUnoconv(workDir, workbook string) error {
	ctx, cancel := context.WithTimeout(context.Background(), unoconvTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "unoconv", "-f", "csv", workbook)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("unoconv timed out")
	}
	if err != nil {
		return fmt.Errorf("unoconv failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// collectSheets reads what unoconv produced: input.csv for a single sheet,
// input-<SheetName>.csv per sheet otherwise.
func collectSheets(workDir string) (map[string][]byte, error) {
	matches, err := filepath.Glob(filepath.Join(workDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob csv: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no CSV files produced")
	}

	sheets := make(map[string][]byte, len(matches))
	for _, f := range matches {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", f, err)
		}
		name := strings.TrimSuffix(filepath.Base(f), ".csv")
		name = strings.TrimPrefix(name, "input-")
		if name == "input" {
			name = "Sheet1"
		}
		sheets[name] = content
	}
	return sheets, nil
}

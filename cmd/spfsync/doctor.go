package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/history"
	"github.com/farid/spf-sync/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure spfsync can operate correctly.

This command checks:
- Configuration (project id, collection names)
- Credentials file accessibility
- Document store connectivity
- History database accessibility and integrity
- Artifacts directory writability

Use this command to troubleshoot issues before running reconciliation.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	applyLogFlags()

	util.InfoLog("=== spfsync Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{
		checkConfig(),
		checkCredentials(),
		checkStore(),
		checkHistoryDB(viper.GetString("history-db")),
		checkArtifactsDir(viper.GetString("artifacts")),
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Resolve errors before running spfsync.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed. Ready for reconciliation.")
	}

	return nil
}

func checkConfig() checkResult {
	if viper.GetString("project") == "" {
		return checkResult{
			name:    "Configuration",
			error:   true,
			message: "no project id set (use --project or set in config)",
		}
	}

	for _, key := range []string{"collections.files", "collections.locations", "collections.borrowings"} {
		if viper.GetString(key) == "" {
			return checkResult{
				name:    "Configuration",
				error:   true,
				message: fmt.Sprintf("%s is empty", key),
			}
		}
	}

	return checkResult{
		name:    "Configuration",
		message: fmt.Sprintf("project %s", viper.GetString("project")),
	}
}

func checkCredentials() checkResult {
	path := viper.GetString("credentials")
	if path == "" {
		return checkResult{
			name:    "Credentials",
			message: "using application default credentials",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    "Credentials",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}
	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Credentials",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", path),
		}
	}

	return checkResult{name: "Credentials", message: path}
}

// checkStore verifies the document store is reachable. A probe read for
// a document that does not exist still proves connectivity: NotFound
// means the round trip worked.
func checkStore() checkResult {
	if viper.GetString("project") == "" {
		return checkResult{
			name:    "Document store",
			warning: true,
			message: "skipped (no project configured)",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := docstore.NewFirestore(ctx, viper.GetString("project"), viper.GetString("credentials"))
	if err != nil {
		return checkResult{
			name:    "Document store",
			error:   true,
			message: fmt.Sprintf("cannot connect: %v", err),
		}
	}
	defer store.Close()

	_, err = store.Get(ctx, viper.GetString("collections.files"), "__doctor_probe__")
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return checkResult{
			name:    "Document store",
			error:   true,
			message: fmt.Sprintf("probe read failed: %v", err),
		}
	}

	return checkResult{
		name:    "Document store",
		message: fmt.Sprintf("reachable (project %s)", viper.GetString("project")),
	}
}

func checkHistoryDB(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "History database",
			warning: true,
			message: "no path specified (use --history-db or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "History database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "History database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}
	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "History database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := history.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "History database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "History database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	runs, _ := db.CountRuns()
	return checkResult{
		name:    "History database",
		message: fmt.Sprintf("%s (sqlite %s, %d runs)", dbPath, history.SQLiteVersion(), runs),
	}
}

func checkArtifactsDir(path string) checkResult {
	if err := os.MkdirAll(path, 0755); err != nil {
		return checkResult{
			name:    "Artifacts directory",
			error:   true,
			message: fmt.Sprintf("cannot create %s: %v", path, err),
		}
	}

	testFile := filepath.Join(path, ".spfsync_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Artifacts directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Artifacts directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

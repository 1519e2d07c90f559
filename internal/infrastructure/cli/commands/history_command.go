package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/emperator-dev/emperator/internal/app"
	"github.com/emperator-dev/emperator/internal/domain"
	"github.com/emperator-dev/emperator/internal/infrastructure/cli/helpers"
	"github.com/emperator-dev/emperator/internal/infrastructure/telemetry"
)

type historyFlags struct {
	fingerprint string
	limit       int
	store       string
	storePath   string
	format      string
	export      string
	meta        []string
}

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(session *Session) *cobra.Command {
	var flags historyFlags

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs for a plan fingerprint, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistory(cmd, session, flags)
		},
	}
	bindHistoryFlags(historyCmd, &flags)
	historyCmd.Flags().IntVar(&flags.limit, "limit", domain.DefaultHistoryLimit, "Max runs to show")
	historyCmd.Flags().StringVar(&flags.export, "export", "", "Write the listed runs to this JSONL file")

	historyCmd.AddCommand(
		newHistoryLatestCommand(session),
		newHistoryFingerprintsCommand(session),
	)
	return historyCmd
}

func bindHistoryFlags(cmd *cobra.Command, flags *historyFlags) {
	cmd.Flags().StringVar(&flags.fingerprint, "fingerprint", "", "Plan fingerprint (default: the current plan's)")
	cmd.Flags().StringVar(&flags.store, "store", "", "Telemetry store: memory|file|sqlite (default from config)")
	cmd.Flags().StringVar(&flags.storePath, "store-path", "", "Override the telemetry storage directory")
	cmd.Flags().StringVar(&flags.format, "format", FormatTable, "Output format: table|json|yaml")
	cmd.Flags().StringArrayVar(&flags.meta, "meta", nil, "Extra key=value used when fingerprinting the current plan")
}

// newHistoryLatestCommand creates the 'history latest' subcommand
func newHistoryLatestCommand(session *Session) *cobra.Command {
	var flags historyFlags
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent run in full",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showLatest(cmd, session, flags)
		},
	}
	bindHistoryFlags(cmd, &flags)
	return cmd
}

// newHistoryFingerprintsCommand creates the 'history fingerprints' subcommand
func newHistoryFingerprintsCommand(session *Session) *cobra.Command {
	var flags historyFlags
	cmd := &cobra.Command{
		Use:   "fingerprints",
		Short: "List fingerprints with recorded history",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openHistoryStore(cmd, session, flags)
			if err != nil {
				return err
			}
			defer store.Close()
			fps, err := store.Fingerprints()
			if err != nil {
				return err
			}
			for _, fp := range fps {
				fmt.Fprintln(cmd.OutOrStdout(), fp)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.store, "store", "", "Telemetry store: file|sqlite (default from config)")
	cmd.Flags().StringVar(&flags.storePath, "store-path", "", "Override the telemetry storage directory")
	return cmd
}

func openHistoryStore(cmd *cobra.Command, session *Session, flags historyFlags) (*app.Container, *telemetry.Store, error) {
	container, err := session.Container(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	store, err := container.OpenStore(app.StoreOptions{Kind: flags.store, Dir: flags.storePath})
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New(ErrTelemetryOff)
	}
	return container, store, nil
}

func resolveFingerprint(cmd *cobra.Command, container *app.Container, flags historyFlags) (string, error) {
	if flags.fingerprint != "" {
		return flags.fingerprint, nil
	}
	extra, err := parseMeta(flags.meta)
	if err != nil {
		return "", err
	}
	analysis, err := container.Analyze(cmd.Context(), nil, extra)
	if err != nil {
		return "", err
	}
	return analysis.Fingerprint, nil
}

// listHistory prints runs for the fingerprint
func listHistory(cmd *cobra.Command, session *Session, flags historyFlags) error {
	if err := checkFormat(flags.format); err != nil {
		return err
	}
	if flags.limit < 1 {
		return errors.New(ErrInvalidLimit)
	}
	container, store, err := openHistoryStore(cmd, session, flags)
	if err != nil {
		return err
	}
	defer store.Close()

	fingerprint, err := resolveFingerprint(cmd, container, flags)
	if err != nil {
		return err
	}
	runs, err := store.History(fingerprint, flags.limit)
	if err != nil {
		return fmt.Errorf("failed to retrieve history: %w", err)
	}
	reportCorrupt(cmd.ErrOrStderr(), store, fingerprint)

	if flags.export != "" {
		if err := exportRuns(flags.export, runs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d run(s) to %s\n", len(runs), flags.export)
	}

	out := cmd.OutOrStdout()
	if flags.format != FormatTable {
		return writeStructured(out, flags.format, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}
	fmt.Fprintf(out, "Fingerprint: %s\n", fingerprint)
	helpers.NewRenderer(out).History(runs)
	return nil
}

// showLatest prints the newest run
func showLatest(cmd *cobra.Command, session *Session, flags historyFlags) error {
	if err := checkFormat(flags.format); err != nil {
		return err
	}
	container, store, err := openHistoryStore(cmd, session, flags)
	if err != nil {
		return err
	}
	defer store.Close()

	fingerprint, err := resolveFingerprint(cmd, container, flags)
	if err != nil {
		return err
	}
	run, err := store.Latest(fingerprint)
	if err != nil {
		return fmt.Errorf("failed to retrieve latest run: %w", err)
	}
	reportCorrupt(cmd.ErrOrStderr(), store, fingerprint)
	if run == nil {
		fmt.Fprintln(cmd.OutOrStdout(), MsgNoHistoryRecorded)
		return nil
	}
	return printRun(cmd.OutOrStdout(), flags.format, *run)
}

// reportCorrupt surfaces skipped telemetry lines as a warning count.
func reportCorrupt(out io.Writer, store *telemetry.Store, fingerprint string) {
	auditor, ok := store.Auditor()
	if !ok {
		return
	}
	scan, err := auditor.Scan(fingerprint)
	if err != nil || len(scan.Corrupt) == 0 {
		return
	}
	fmt.Fprintf(out, "warning: skipped %d corrupt telemetry record(s)\n", len(scan.Corrupt))
	for _, rec := range scan.Corrupt {
		fmt.Fprintf(out, "  %s\n", rec)
	}
}

// exportRuns writes runs as JSONL
func exportRuns(path string, runs []domain.TelemetryRun) error {
	var buf bytes.Buffer
	for _, run := range runs {
		line, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("encode run %s: %w", run.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
			return fmt.Errorf("failed to export history to %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), domain.FilePermissions); err != nil {
		return fmt.Errorf("failed to export history to %s: %w", path, err)
	}
	return nil
}

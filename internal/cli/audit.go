package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pageguard/internal/auditlog"
	"github.com/ppiankov/pageguard/internal/model"
)

var (
	auditLevel    string
	auditDecision string
	auditText     string
	auditSince    string
	auditFormat   string
	auditOut      string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditImportCmd)

	auditListCmd.Flags().StringVar(&auditLevel, "level", "", "Filter by risk level (low/moderate/high)")
	auditListCmd.Flags().StringVar(&auditDecision, "decision", "", "Filter by decision (allow/warn/block)")
	auditListCmd.Flags().StringVar(&auditText, "text", "", "Free-text filter over subject and signals")
	auditListCmd.Flags().StringVar(&auditSince, "since", "", "Only entries after this RFC3339 timestamp")

	auditExportCmd.Flags().StringVar(&auditFormat, "format", "json", "Export format (json/csv)")
	auditExportCmd.Flags().StringVar(&auditOut, "out", "", "Output file (default stdout)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the decision log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded decisions, oldest first",
	RunE:  runAuditList,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the decision log as JSON or CSV",
	RunE:  runAuditExport,
}

var auditImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the decision log from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditImport,
}

func runAuditList(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	f := auditlog.Filter{
		Level:    model.Level(auditLevel),
		Decision: model.Decision(auditDecision),
		Text:     auditText,
	}
	if auditSince != "" {
		ts, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return fmt.Errorf("--since must be RFC3339: %w", err)
		}
		f.From = ts
	}

	entries := a.engine.Audit().Query(f)
	if len(entries) == 0 {
		fmt.Println("no matching entries")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-5s  %3d  %-8s  %s",
			e.Timestamp.UTC().Format(time.RFC3339), e.Decision, e.Score, e.Level, e.Subject)
		if len(e.Signals) > 0 {
			line += "  [" + strings.Join(e.Signals, " ") + "]"
		}
		fmt.Println(line)
	}
	fmt.Printf("%d entries\n", len(entries))
	return nil
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	var data []byte
	switch auditFormat {
	case "json":
		data, err = a.engine.Audit().ExportJSON()
	case "csv":
		data, err = a.engine.Audit().ExportCSV()
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", auditFormat)
	}
	if err != nil {
		return err
	}

	if auditOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(auditOut, data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", auditOut)
	return nil
}

func runAuditImport(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	if err := a.engine.Audit().ImportJSON(data); err != nil {
		return err
	}
	fmt.Printf("imported %d entries\n", a.engine.Audit().Len())
	return nil
}

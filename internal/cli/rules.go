package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pageguard/internal/rules"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesInitCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage rule tables",
}

var rulesInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write the built-in rule tables as editable YAML files",
	Long:  "Writes one YAML file per surface (privacy, sensitive, urlrep, content)\ninto the given directory, defaulting to the state directory. Point the\nconfig's rule_tables paths at them to take over.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRulesInit,
}

func runRulesInit(cmd *cobra.Command, args []string) error {
	dir := DefaultDir()
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create rules dir: %w", err)
	}

	surfaces := []string{
		rules.SurfacePrivacy,
		rules.SurfaceSensitive,
		rules.SurfaceURLRep,
		rules.SurfaceContent,
	}
	for _, surface := range surfaces {
		path := filepath.Join(dir, surface+".yaml")
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "skipping %s: already exists\n", path)
			continue
		}
		data, err := yaml.Marshal(rules.Default(surface).Entries())
		if err != nil {
			return fmt.Errorf("marshal %s table: %w", surface, err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s table: %w", surface, err)
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

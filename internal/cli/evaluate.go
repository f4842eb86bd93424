package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pageguard/internal/engine"
	"github.com/ppiankov/pageguard/internal/model"
)

var (
	evalURL       string
	evalPage      string
	evalFieldName string
	evalFieldType string
	evalValue     string
	evalJSON      bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalURL, "url", "", "URL to evaluate")
	evaluateCmd.Flags().StringVar(&evalPage, "page", "", "Page URL providing context for a field evaluation")
	evaluateCmd.Flags().StringVar(&evalFieldName, "field-name", "", "Form field name")
	evaluateCmd.Flags().StringVar(&evalFieldType, "field-type", "", "Form field input type (text/password/...)")
	evaluateCmd.Flags().StringVar(&evalValue, "value", "", "Field value to classify")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Print the verdict as JSON")
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a URL or a form field once and print the verdict",
	Long:  "One-shot evaluation against the current configuration and rule tables.\nUse --url alone for a URL check, or --page with --value for a field check.",
	RunE:  runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	var v engine.Verdict
	switch {
	case evalURL != "":
		v = a.engine.Navigate(model.NavigateEvent{URL: evalURL})
	case evalPage != "" && (evalValue != "" || evalFieldName != ""):
		v = a.engine.CheckField(evalPage, model.FieldDescriptor{
			Name:      evalFieldName,
			InputType: evalFieldType,
			Value:     evalValue,
		})
	default:
		return fmt.Errorf("evaluate needs --url, or --page with --value/--field-name")
	}

	if evalJSON {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printVerdict(v)
	}

	if v.Decision == model.Block {
		os.Exit(2)
	}
	return nil
}

func printVerdict(v engine.Verdict) {
	fmt.Printf("subject:  %s\n", v.Subject)
	fmt.Printf("score:    %d (%s)\n", v.Assessment.Score, v.Assessment.Level)
	fmt.Printf("decision: %s (%s)\n", v.Decision, v.Reason)
	for _, r := range v.Assessment.Reasons {
		fmt.Printf("  - %s\n", r)
	}
	for _, d := range v.Diagnostics {
		fmt.Printf("  ! %s\n", d)
	}
	if v.OverrideToken != "" {
		fmt.Printf("override token: %s\n", v.OverrideToken)
	}
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pageguard/internal/grant"
	"github.com/ppiankov/pageguard/internal/pin"
	"github.com/ppiankov/pageguard/internal/policy"
)

var trustSecret string

func init() {
	rootCmd.AddCommand(trustCmd)
	trustCmd.AddCommand(trustAddCmd)
	trustCmd.AddCommand(trustRemoveCmd)
	trustCmd.AddCommand(trustListCmd)

	trustAddCmd.Flags().StringVar(&trustSecret, "secret", "", "Override secret, required when one is configured")
}

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Manage site-wide trust",
	Long:  "A trusted site bypasses warnings and blocks for every capability until\nthe trust is removed. Adding trust is secret-gated when a secret is set.",
}

var trustAddCmd = &cobra.Command{
	Use:   "add <site>",
	Short: "Trust a site for all capabilities",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustAdd,
}

var trustRemoveCmd = &cobra.Command{
	Use:   "remove <site>",
	Short: "Remove site-wide trust",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustRemove,
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trusted sites",
	RunE:  runTrustList,
}

func runTrustAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfgs.Current().RequireSecretForTrust && a.pin.Required() {
		if err := a.pin.Verify(trustSecret); err != nil {
			if errors.Is(err, pin.ErrMismatch) {
				return fmt.Errorf("secret mismatch")
			}
			return err
		}
	}

	if _, err := a.engine.Grants().Grant(args[0], policy.CapAll, grant.Trusted, 0); err != nil {
		return err
	}
	fmt.Printf("trusted %s\n", args[0])
	return nil
}

func runTrustRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.engine.Grants().Revoke(args[0], policy.CapAll) {
		return fmt.Errorf("%s is not trusted", args[0])
	}
	fmt.Printf("removed trust for %s\n", args[0])
	return nil
}

func runTrustList(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	found := false
	for _, g := range a.engine.Grants().List() {
		if g.Mode == grant.Trusted && g.Capability == policy.CapAll {
			fmt.Println(g.Site)
			found = true
		}
	}
	for _, s := range a.cfgs.Current().TrustedSubjects {
		fmt.Printf("%s (config)\n", s)
		found = true
	}
	if !found {
		fmt.Println("no trusted sites")
	}
	return nil
}

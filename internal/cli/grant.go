package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pageguard/internal/grant"
)

var (
	grantMode string
	grantTTL  time.Duration
)

func init() {
	rootCmd.AddCommand(grantCmd)
	grantCmd.AddCommand(grantAddCmd)
	grantCmd.AddCommand(grantRevokeCmd)
	grantCmd.AddCommand(grantListCmd)
	grantCmd.AddCommand(grantSweepCmd)

	grantAddCmd.Flags().StringVar(&grantMode, "mode", "temporary", "Grant mode (temporary/trusted)")
	grantAddCmd.Flags().DurationVar(&grantTTL, "ttl", 15*time.Minute, "Expiry for temporary grants")
}

var grantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Manage permission grants",
}

var grantAddCmd = &cobra.Command{
	Use:   "add <site> <capability>",
	Short: "Record a grant for a site and capability",
	Args:  cobra.ExactArgs(2),
	RunE:  runGrantAdd,
}

var grantRevokeCmd = &cobra.Command{
	Use:   "revoke <site> <capability>",
	Short: "Revoke a grant",
	Args:  cobra.ExactArgs(2),
	RunE:  runGrantRevoke,
}

var grantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List grants, expired ones marked",
	RunE:  runGrantList,
}

var grantSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired grants now",
	RunE:  runGrantSweep,
}

func runGrantAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	mode := grant.Mode(grantMode)
	ttl := grantTTL
	if mode != grant.Temporary {
		ttl = 0
	}
	g, err := a.engine.Grants().Grant(args[0], args[1], mode, ttl)
	if err != nil {
		return err
	}
	if g.ExpiresAt != nil {
		fmt.Printf("granted %s/%s (%s), expires %s\n",
			g.Site, g.Capability, g.Mode, g.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Printf("granted %s/%s (%s)\n", g.Site, g.Capability, g.Mode)
	}
	return nil
}

func runGrantRevoke(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.engine.Grants().Revoke(args[0], args[1]) {
		return fmt.Errorf("no grant for %s/%s", args[0], args[1])
	}
	a.engine.Machine().Revoke(args[0], args[1])
	fmt.Printf("revoked %s/%s\n", args[0], args[1])
	return nil
}

func runGrantList(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	grants := a.engine.Grants().List()
	if len(grants) == 0 {
		fmt.Println("no grants")
		return nil
	}
	now := time.Now()
	for _, g := range grants {
		state := "active"
		expiry := "never"
		if g.ExpiresAt != nil {
			expiry = g.ExpiresAt.UTC().Format(time.RFC3339)
			if !g.Active(now) {
				state = "expired"
			}
		}
		fmt.Printf("%-30s  %-10s  %-16s  %-7s  expires %s\n",
			g.Site, g.Capability, g.Mode, state, expiry)
	}
	return nil
}

func runGrantSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	n := a.engine.Grants().SweepExpired()
	fmt.Printf("swept %d expired grants\n", n)
	return nil
}

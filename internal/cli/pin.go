package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pinCmd)
	pinCmd.AddCommand(pinSetCmd)
	pinCmd.AddCommand(pinClearCmd)
}

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage the override secret",
	Long:  "The secret gates trust overrides. Only a salted hash is stored; there is\nno way to recover a lost secret, only to clear and set a new one.",
}

var pinSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the override secret (read from stdin)",
	RunE:  runPinSet,
}

var pinClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the override secret",
	RunE:  runPinClear,
}

func runPinSet(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprint(os.Stderr, "new secret: ")
	reader := bufio.NewReader(os.Stdin)
	secret, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}
	if err := a.pin.Set(strings.TrimSpace(secret)); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "secret set")
	return nil
}

func runPinClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.pin.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "secret cleared")
	return nil
}

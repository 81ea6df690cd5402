package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scrawl-dev/scrawl/internal/printer"
	"github.com/scrawl-dev/scrawl/internal/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Administer edit tokens",
	Long: `Administer edit tokens directly against a canvas storage directory.

These commands bypass the external identity check; issuance over HTTP is
the normal path for users.`,
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <dir> <uid>",
	Short: "Issue a fresh token for a uid",
	Args:  cobra.ExactArgs(2),
	RunE:  runTokenIssue,
}

var tokenRegisterCmd = &cobra.Command{
	Use:   "register <dir> <token> <uid>",
	Short: "Register an externally supplied token for a uid",
	Args:  cobra.ExactArgs(3),
	RunE:  runTokenRegister,
}

var tokenListCmd = &cobra.Command{
	Use:   "list <dir>",
	Short: "List all token bindings",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenList,
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenCmd.AddCommand(tokenRegisterCmd)
	tokenCmd.AddCommand(tokenListCmd)
	rootCmd.AddCommand(tokenCmd)
}

func openStore(dir string) (*token.Store, error) {
	return token.Open(filepath.Join(dir, "tokens"))
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	store, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	tok, err := store.Issue(args[1])
	if err != nil {
		return err
	}

	printer.Success("Issued token for %s: %s\n", args[1], tok)
	return nil
}

func runTokenRegister(cmd *cobra.Command, args []string) error {
	tok, err := token.Parse(args[1])
	if err != nil {
		return err
	}

	store, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Register(tok, args[2]); err != nil {
		return err
	}

	printer.Success("Registered token %s for %s\n", tok, args[2])
	return nil
}

func runTokenList(cmd *cobra.Command, args []string) error {
	store, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		printer.Info("No tokens issued\n")
		return nil
	}

	fmt.Printf("%-24s %-18s %s\n", "UID", "TOKEN", "LAST USE")
	fmt.Printf("%-24s %-18s %s\n", "------------------------", "------------------", "--------------------")
	for _, e := range entries {
		lastUse := "never"
		if e.LastUse.UnixMilli() > 0 {
			lastUse = e.LastUse.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-24s %-18s %s\n", e.UID, e.Token, lastUse)
	}

	fmt.Printf("\n%d token(s)\n", len(entries))
	return nil
}

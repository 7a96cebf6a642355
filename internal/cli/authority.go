package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/resolve"
)

var authorityDB string

var authorityCmd = &cobra.Command{
	Use:   "authority",
	Short: "Manage the identifier authority table",
}

var authorityImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import curated identifiers from YAML",
	Long: `Import curated name -> identifier mappings into the SQLite authority table.
During resolution the table is consulted before hash identifiers are minted.

File format:
  entries:
    - name: "Jefferson, Thomas"
      label: person
      uri: "http://id.loc.gov/authorities/names/n79089957"

Example:
  oculus authority import authorities.yaml --db data/authority.db`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorityImport,
}

func init() {
	authorityImportCmd.Flags().StringVar(&authorityDB, "db", "", "authority database path (default from config)")
	authorityCmd.AddCommand(authorityImportCmd)
}

func runAuthorityImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := authorityDB
	if path == "" {
		path = cfg.AuthorityDB
	}
	if path == "" {
		return fmt.Errorf("no authority database: set --db or authority_db")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	entries, err := resolve.DecodeAuthority(f)
	if err != nil {
		return err
	}

	a, err := resolve.OpenAuthority(ctx, path)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Import(ctx, entries)
	if err != nil {
		return err
	}
	logger.Info("authority import complete", "file", args[0], "db", path, "entries", n)
	fmt.Printf("Imported %d entries into %s\n", n, path)
	return nil
}

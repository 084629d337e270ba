package cmd

import (
	"fmt"
	"sort"

	"staysync/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// checkCmd represents the integrity check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the database schema and the run archive bucket",
	Long: `Verifies that every table and column used by the service exists with a
compatible type, and that the run archive bucket is present when archiving is enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		logg := rt.logger

		svc := integrity.NewService(rt.db, rt.storage, rt.cfg.Storage, logg)

		logg.Info("Checking database schema...")
		schema, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}

		tables := make([]string, 0, len(schema.Tables))
		for name := range schema.Tables {
			tables = append(tables, name)
		}
		sort.Strings(tables)

		fmt.Println("\n=== Schema Integrity ===")
		fmt.Printf("Driver: %s\n", schema.Driver)
		for _, name := range tables {
			t := schema.Tables[name]
			fmt.Printf("  %-20s %s\n", name, t.Status)
			for _, col := range t.MissingColumns {
				fmt.Printf("    missing column: %s\n", col)
			}
			for _, m := range t.TypeMismatches {
				fmt.Printf("    type mismatch: %s\n", m)
			}
		}
		for _, e := range schema.Errors {
			fmt.Printf("  error: %s\n", e)
		}

		logg.Info("Checking run archive bucket...")
		check := svc.CheckBucket
		if fixFlag {
			check = svc.FixBucket
		}
		bucket, err := check(ctx)
		if err != nil {
			return fmt.Errorf("storage check failed: %w", err)
		}

		fmt.Println("\n=== Run Archive ===")
		switch {
		case !bucket.Enabled:
			fmt.Println("Archiving disabled")
		case bucket.Created:
			fmt.Printf("Bucket %s created\n", bucket.Bucket)
		case bucket.Exists:
			fmt.Printf("Bucket %s present\n", bucket.Bucket)
		default:
			fmt.Printf("Bucket %s missing. Run with --fix to create it.\n", bucket.Bucket)
		}

		logg.Info("Integrity check completed",
			zap.Bool("schema_matched", schema.Matched),
			zap.Bool("bucket_ok", !bucket.Enabled || bucket.Exists),
		)
		if !schema.Matched {
			return fmt.Errorf("database schema does not match; run 'staysync migrate'")
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the run archive bucket if missing")
}

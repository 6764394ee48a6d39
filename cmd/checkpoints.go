package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/withobsrvr/ttp-consumer/internal/checkpoint"
)

// checkpointsCmd groups the cursor store maintenance commands
var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Manage resume cursors",
	Long: `Inspect and prune the local cursor store that backs 'stream --resume'.
Each cursor records the last delivered ledger for a named query.`,
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored resume cursors",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCursorStore()
		if err != nil {
			return err
		}
		defer store.Close()

		cursors, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		switch output {
		case "json":
			data, err := json.MarshalIndent(cursors, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		case "yaml":
			data, err := yaml.Marshal(cursors)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
		default:
			if len(cursors) == 0 {
				fmt.Println("No cursors stored")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSERVER\tFILTER\tLAST LEDGER\tUPDATED")
			for _, c := range cursors {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					c.Name, c.Server, c.Filter, c.LastLedger,
					c.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			w.Flush()
		}
		return nil
	},
}

var checkpointsDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a stored resume cursor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCursorStore()
		if err != nil {
			return err
		}
		defer store.Close()

		name := args[0]
		if err := store.Delete(cmd.Context(), name); err != nil {
			if checkpoint.IsNotFound(err) {
				return fmt.Errorf("no cursor named %q", name)
			}
			return err
		}

		fmt.Printf("Deleted cursor %q\n", name)
		return nil
	},
}

// openCursorStore opens the configured BoltDB cursor store. The server
// address is not needed here, so configuration errors about it are ignored.
func openCursorStore() (checkpoint.CursorStore, error) {
	path := ""
	if cfg, err := loadConfig(); err == nil {
		path = cfg.CheckpointPath
	}

	store := checkpoint.NewBoltStore(&checkpoint.BoltOptions{Path: path})
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	checkpointsCmd.AddCommand(checkpointsListCmd)
	checkpointsCmd.AddCommand(checkpointsDeleteCmd)
}

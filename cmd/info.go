package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/withobsrvr/ttp-consumer/internal/client"
)

// infoCmd reports the configured connection without opening a stream
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the configured event service connection",
	Long: `Validate the configured server address and print the connection
summary along with the effective client settings. No stream is opened.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c, err := client.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		fmt.Println(c.Info())
		fmt.Printf("  transport:     %s\n", cfg.Transport)
		fmt.Printf("  dial timeout:  %s\n", cfg.DialTimeout)
		fmt.Printf("  idle timeout:  %s\n", cfg.IdleTimeout)
		fmt.Printf("  stream buffer: %d events\n", cfg.StreamBuffer)
		fmt.Printf("  max frame:     %d bytes\n", cfg.MaxFrameSize)
		if cfg.TLS.Enabled() {
			fmt.Printf("  tls:           %s\n", cfg.TLS.Mode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

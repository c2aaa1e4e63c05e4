package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// GetVersion returns the build version.
func GetVersion() string {
	return Version
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the relayforge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("relayforge %s\n", GetVersion())
		},
	})
}

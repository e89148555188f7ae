// Command relayd runs a relay member. It joins a memberlist cluster, gossips
// routing tables over gRPC, and logs the remote endpoints it learns of.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	config := viper.New()
	root := &cobra.Command{
		Use:   "relayd",
		Short: "Replicate RPC and Action routes across a cluster",
		RunE: func(*cobra.Command, []string) error {
			return run(config)
		},
		SilenceUsage: true,
	}
	addFlags(root, config)
	cobra.OnInitialize(func() { loadConfigFile(config) })
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

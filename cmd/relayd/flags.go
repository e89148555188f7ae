package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagConfig         = "config"
	flagAddress        = "address"
	flagDir            = "dir"
	flagJoin           = "join"
	flagMemberlistBind = "memberlist-bind"
	flagMemberlistPort = "memberlist-port"
	flagMetrics        = "metrics"
	flagGossipInterval = "gossip-interval"
	flagRPC            = "rpc"
	flagAction         = "action"
	flagPrettyLog      = "pretty-log"
	flagDebug          = "debug"
)

func addFlags(root *cobra.Command, config *viper.Viper) {
	f := root.Flags()
	f.String(flagConfig, "", "Path to a configuration file")
	f.StringP(flagAddress, "a", "localhost:7946", "Gossip address advertised to peers")
	f.StringP(flagDir, "d", "relay", "Directory where bucket versions are persisted")
	f.StringSliceP(flagJoin, "j", []string{}, "Memberlist agents to join")
	f.String(flagMemberlistBind, "0.0.0.0", "Address the memberlist agent binds to")
	f.Int(flagMemberlistPort, 7947, "Port the memberlist agent binds to")
	f.String(flagMetrics, ":9000", "Address to serve Prometheus metrics on; empty disables")
	f.Duration(flagGossipInterval, 0, "Period between anti-entropy exchanges")
	f.StringSlice(flagRPC, []string{}, "RPC to advertise, as type:path")
	f.StringSlice(flagAction, []string{}, "Action to advertise, as type:datastore:path")
	f.Bool(flagPrettyLog, false, "Log in a human readable format")
	f.Bool(flagDebug, false, "Enable debug logging")
	_ = config.BindPFlags(f)

	config.SetEnvPrefix("relay")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	config.AutomaticEnv()
}

func loadConfigFile(config *viper.Viper) {
	path := config.GetString(flagConfig)
	if path == "" {
		return
	}
	config.SetConfigFile(path)
	if err := config.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config file %s: %v\n", path, err)
		os.Exit(1)
	}
}

package serve

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/hivecache/hivecache/cmd/util"
	"github.com/hivecache/hivecache/lib/cluster/membership"
	"github.com/hivecache/hivecache/lib/node"
	"github.com/hivecache/hivecache/wire/transport"
)

var (
	serveCmdConfig = &node.Config{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Run a hivecache node",
		Long:    `Run a hivecache node with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is HIVECACHE_<flag> (e.g. HIVECACHE_BIND_ADDR=0.0.0.0:7946)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "node-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Unique identifier for this node (e.g. 'node-1'). It doubles as the write origin for conflict resolution, so it must differ between nodes. Empty = random"))

	key = "bind-addr"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:7946", cmdUtil.WrapString("The address the peer listener binds to"))

	key = "advertise-addr"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address peers use to reach this node (defaults to the bind address)"))

	key = "seeds"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of addresses of known cluster members contacted at startup (e.g. 'host-1:7946,host-2:7946')"))

	key = "bootstrap"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Request a snapshot from the seeds at startup so the node starts warm instead of empty"))

	key = "capacity-mb"
	ServeCmd.PersistentFlags().Int64(key, 64, cmdUtil.WrapString("Cache capacity in megabytes. The engine evicts entries once this limit is reached"))

	key = "small-fraction"
	ServeCmd.PersistentFlags().Float64(key, 0.1, cmdUtil.WrapString("Fraction of the capacity reserved for the probationary queue. New keys enter here and must be hit once to survive"))

	key = "ghost-entries"
	ServeCmd.PersistentFlags().Int(key, 4096, cmdUtil.WrapString("Number of recently evicted keys remembered without their values. A re-inserted remembered key skips probation"))

	key = "tombstone-entries"
	ServeCmd.PersistentFlags().Int(key, 4096, cmdUtil.WrapString("Number of recent deletes remembered per shard to keep late replicated writes from resurrecting deleted keys"))

	key = "num-shards"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Number of independent cache shards (0 = number of CPUs)"))

	key = "heartbeat-interval-ms"
	ServeCmd.PersistentFlags().Int(key, 1000, cmdUtil.WrapString("How often this node announces itself to its peers (in milliseconds)"))

	key = "suspect-timeout-ms"
	ServeCmd.PersistentFlags().Int(key, 3000, cmdUtil.WrapString("A peer is marked Suspect after this much silence (in milliseconds)"))

	key = "dead-timeout-ms"
	ServeCmd.PersistentFlags().Int(key, 10000, cmdUtil.WrapString("A peer is marked Dead and excluded from replication after this much silence (in milliseconds)"))

	key = "dead-retention-ms"
	ServeCmd.PersistentFlags().Int(key, 60000, cmdUtil.WrapString("A Dead peer is forgotten entirely after this long (in milliseconds)"))

	key = "metrics-addr"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address to serve Prometheus metrics on under /metrics (e.g. '0.0.0.0:9090', empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "transport-timeout-ms"
	ServeCmd.PersistentFlags().Int(key, 1000, cmdUtil.WrapString("The timeout for dialing a peer and for a single write (in milliseconds)"))

	key = "transport-max-message-mb"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Incoming frames larger than this are rejected (in MB)"))

	key = "transport-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket write buffer (in KB, 0 = OS default)"))

	key = "transport-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket read buffer (in KB, 0 = OS default)"))

	key = "transport-tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY for peer connections"))

	key = "transport-tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 30, cmdUtil.WrapString("The keepalive interval for peer connections (in seconds, 0 = disabled)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the node configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	*serveCmdConfig = node.DefaultConfig()

	if id := viper.GetString("node-id"); id != "" {
		serveCmdConfig.ID = id
	}
	serveCmdConfig.BindAddr = viper.GetString("bind-addr")
	serveCmdConfig.AdvertiseAddr = viper.GetString("advertise-addr")
	serveCmdConfig.Bootstrap = viper.GetBool("bootstrap")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// parse seeds
	serveCmdConfig.Seeds = nil
	if seeds := viper.GetString("seeds"); seeds != "" {
		for _, seed := range strings.Split(seeds, ",") {
			serveCmdConfig.Seeds = append(serveCmdConfig.Seeds, strings.TrimSpace(seed))
		}
	}

	// engine settings
	serveCmdConfig.CapacityBytes = viper.GetInt64("capacity-mb") * 1024 * 1024
	serveCmdConfig.SmallFraction = viper.GetFloat64("small-fraction")
	serveCmdConfig.GhostEntries = viper.GetInt("ghost-entries")
	serveCmdConfig.TombstoneEntries = viper.GetInt("tombstone-entries")
	serveCmdConfig.NumShards = viper.GetInt("num-shards")

	// subsystem settings
	serveCmdConfig.Membership = membership.Config{
		HeartbeatIntervalMs: viper.GetInt("heartbeat-interval-ms"),
		SuspectTimeoutMs:    viper.GetInt("suspect-timeout-ms"),
		DeadTimeoutMs:       viper.GetInt("dead-timeout-ms"),
		DeadRetentionMs:     viper.GetInt("dead-retention-ms"),
	}
	serveCmdConfig.Transport = transport.Config{
		TimeoutMs:       viper.GetInt("transport-timeout-ms"),
		MaxMessageSize:  viper.GetInt("transport-max-message-mb") * 1024 * 1024,
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
	}

	return nil
}

// run starts the node and blocks until the process is interrupted
func run(_ *cobra.Command, _ []string) error {
	n, err := node.New(*serveCmdConfig, nil)
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}

	// optional metrics endpoint
	var metricsServer *http.Server
	if addr := viper.GetString("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			n.WritePrometheus(w)
		})
		metricsServer = &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Printf("metrics endpoint error: %v\n", err)
			}
		}()
	}

	// block until interrupted
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if metricsServer != nil {
		_ = metricsServer.Close()
	}
	return n.Close()
}

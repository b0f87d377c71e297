package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexbridge/wiretransport/internal/config"
	"github.com/nexbridge/wiretransport/internal/logging"
	"github.com/nexbridge/wiretransport/pkg/diagstore"
	"github.com/nexbridge/wiretransport/pkg/statusapi"
	"github.com/nexbridge/wiretransport/pkg/transport"
)

var (
	pingCount int
	statusAPI string
	diagPath  string
)

var pingCmd = &cobra.Command{
	Use:   "ping <address>",
	Short: "Connect to a remote endpoint and report RTT/clock-offset samples",
	Args:  cobra.ExactArgs(1),
	RunE:  runPing,
}

func init() {
	pingCmd.Flags().IntVar(&pingCount, "count", 5, "number of ping/pong round trips to observe before exiting")
	pingCmd.Flags().StringVar(&statusAPI, "status-addr", "", "if set, also serve the status API on this address (e.g. :8080)")
	pingCmd.Flags().StringVar(&diagPath, "diag-store", "", "if set, persist every RTT/offset sample to a bbolt db at this path")
	rootCmd.AddCommand(pingCmd)
}

func runPing(_ *cobra.Command, args []string) error {
	log := logging.MustGetLogger("wireprobe")

	var sink transport.DiagSink
	if diagPath != "" {
		store, err := diagstore.Open(diagPath)
		if err != nil {
			return fmt.Errorf("open diag store: %w", err)
		}
		defer store.Close() //nolint:errcheck
		sink = diagstore.NewSink(store)
	}

	peer := transport.NewUDPPeer(transport.Config{
		ConfiguredTimeout: cfg.ConfiguredTimeout.Seconds(),
		KindPolicy:        config.NewKindPolicy(cfg),
		Log:               log,
		HeartbeatInterval: cfg.HeartbeatInterval,
		PoolMaxIdle:       cfg.PoolMaxIdle,
		DebugReadOverflow: cfg.DebugReadOverflow,
		DiagSink:          sink,
	})
	defer peer.Close() //nolint:errcheck

	if err := peer.Listen(cfg.ListenAddress); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if statusAPI != "" {
		server := statusapi.New(peer)
		go func() {
			log.WithField("addr", statusAPI).Info("serving status API")
			if err := http.ListenAndServe(statusAPI, server); err != nil {
				log.WithError(err).Warn("status API server stopped")
			}
		}()
	}

	conn, err := peer.Connect(args[0])
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	// SampleCount only advances on an actually-accepted pong, so polling it
	// (rather than re-reading AverageRoundtripTime, which holds its last
	// value between samples) is what lets this loop tell a fresh round
	// trip from the heartbeat apart from seeing the same stale RTT twice.
	seen := 0
	lastCount := conn.Engine().SampleCount()
	deadline := time.Now().Add(time.Duration(pingCount) * 2 * time.Second)
	for seen < pingCount && time.Now().Before(deadline) {
		if count := conn.Engine().SampleCount(); count > lastCount {
			lastCount = count
			if rtt, ok := conn.Engine().AverageRoundtripTime(); ok {
				fmt.Printf("rtt=%.4fs offset=%.4fs\n", rtt, conn.Engine().RemoteTimeOffset())
				seen++
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

package commands

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/pkg/chat"
	"github.com/parleyhq/parley/pkg/chat/seed"
	"github.com/parleyhq/parley/pkg/gateway"
)

var (
	serveAddr      string
	serveSeedDir   string
	serveMockDelay time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		orch := chat.NewOrchestrator()
		if serveSeedDir != "" {
			ids, err := seed.LoadFromDir(serveSeedDir, orch)
			if err != nil {
				return err
			}
			slog.Info("seed configs loaded", "dir", serveSeedDir, "count", len(ids))
		}

		gw := gateway.New(orch)
		gw.MockDelay = serveMockDelay

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", gw.ServeWS)
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"name":    "parley",
				"version": Version,
				"status":  "running",
			})
		})

		slog.Info("gateway listening", "addr", serveAddr)
		return http.ListenAndServe(serveAddr, mux)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")
	serveCmd.Flags().StringVar(&serveSeedDir, "seed-dir", "", "directory of persona/model seed configs")
	serveCmd.Flags().DurationVar(&serveMockDelay, "mock-delay", 0, "inter-word delay of the mock provider (0 = default)")
	rootCmd.AddCommand(serveCmd)
}

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vkornev/logbay/internal/encoding"
	"github.com/vkornev/logbay/internal/hub"
	"github.com/vkornev/logbay/internal/intake"
	"github.com/vkornev/logbay/internal/pipeline"
	"github.com/vkornev/logbay/internal/server"
	"github.com/vkornev/logbay/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the log ingestion and streaming server",
	Long: `Start the HTTP/WebSocket server. Clients upload log files over
POST /api/files, read them back paginated, export them filtered, and follow
the live record stream over /ws.

With --spool-dir, files dropped into the directory are ingested through the
same pipeline without an HTTP upload.

Examples:
  logbay serve
  logbay serve --port 9090 --spool-dir /var/spool/logbay`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("port", "8080", "HTTP listen port")
	serveCmd.Flags().Int64("max-upload", 64<<20, "maximum upload size in bytes (0 = unlimited)")
	serveCmd.Flags().String("spool-dir", "", "directory to watch for dropped log files")
	serveCmd.Flags().String("spool-pattern", "*.log", "file name glob for spool intake")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("max_upload", serveCmd.Flags().Lookup("max-upload"))
	viper.BindPFlag("spool_dir", serveCmd.Flags().Lookup("spool-dir"))
	viper.BindPFlag("spool_pattern", serveCmd.Flags().Lookup("spool-pattern"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "logbay shutting down...")
		cancel()
	}()

	st := store.New()
	h := hub.New()
	pipe := pipeline.New(encoding.NewNormalizer(), st, h)

	if dir := viper.GetString("spool_dir"); dir != "" {
		in := intake.New(dir, viper.GetString("spool_pattern"), st, pipe)
		go func() {
			if err := in.Start(ctx); err != nil {
				log.Printf("spool intake stopped: %v", err)
			}
		}()
		log.Printf("watching spool directory %s (pattern %s)", dir, viper.GetString("spool_pattern"))
	}

	port := viper.GetString("port")
	srv := server.New(st, h, pipe, port, viper.GetInt64("max_upload"))
	log.Printf("logbay listening on :%s", port)
	return srv.Start(ctx)
}

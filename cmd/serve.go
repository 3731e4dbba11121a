package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ropdawg/astral/internal"
	"github.com/ropdawg/astral/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr         string
	serveAssetsOrigin string
	serveNoWeb        bool
)

// errMissingAPIKey is returned by serve when GROQ_API_KEY is unset
var errMissingAPIKey = errors.New("GROQ_API_KEY is required to run the chat server")

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Astral chat endpoint",
	Long: `Run the HTTP chat endpoint the client talks to.

Every POST /chat is answered by the completion model, with the most
relevant remembered turns and, for time-sensitive questions, web findings
added to the prompt. Memories are kept in the configured history backend.

The completion key is read from GROQ_API_KEY. Set BING_API_KEY to prefer
Bing for web findings. With --assets-origin the web client is cached
under the data directory and served from /.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cfg.Server
		if sc.APIKey == "" {
			return errMissingAPIKey
		}
		addr := sc.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		origin := sc.AssetsOrigin
		if serveAssetsOrigin != "" {
			origin = serveAssetsOrigin
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := internal.OpenBackend(cfg.Backend, cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open memory store: %w", err)
		}
		defer backend.Close()

		log := internal.Logger().Named("server")
		memory := server.NewMemoryBank(sc.MemoryLimit, backend)
		log.Info("memory loaded", zap.Int("items", memory.Len()), zap.String("backend", cfg.Backend))

		var search server.WebSearcher
		if !serveNoWeb {
			search = server.NewSearcher(sc.BingAPIKey)
		}

		opts := server.Options{AllowedOrigins: sc.AllowedOrigins}
		if origin != "" {
			assets, err := prepareAssets(ctx, origin)
			if err != nil {
				return err
			}
			opts.Assets = assets
		}

		completer := server.NewGroqCompleter(sc.APIKey, sc.BaseURL, sc.Model)
		srv := server.New(completer, memory, search, log, opts)

		internal.PrintInfo(fmt.Sprintf("Astral listening on %s (model %s)", addr, completer.Model()))
		return srv.ListenAndServe(ctx, addr)
	},
}

// prepareAssets drops stale cache versions and precaches the web client.
// Neither step is fatal; missing assets fall through to the origin.
func prepareAssets(ctx context.Context, origin string) (http.Handler, error) {
	cache := internal.NewAssetCache(cfg.DataDir, origin)
	err := internal.ShowProgressWithSteps(ctx, []internal.ProgressStep{
		{
			Message: "Removing old asset caches",
			Fn: func() error {
				if err := cache.Purge(); err != nil {
					internal.LogWarn("Failed to purge old asset caches: %v", err)
				}
				return nil
			},
		},
		{
			Message: fmt.Sprintf("Caching web client from %s", origin),
			Fn: func() error {
				err := cache.Install(ctx)
				if errors.Is(err, context.Canceled) {
					return err
				}
				if err != nil {
					internal.LogWarn("Asset precache incomplete: %v", err)
				}
				return nil
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return cache.Handler(), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :8000, or :$PORT)")
	serveCmd.Flags().StringVar(&serveAssetsOrigin, "assets-origin", "", "Origin to cache and serve the web client from")
	serveCmd.Flags().BoolVar(&serveNoWeb, "no-web", false, "Never add web findings to prompts")
}

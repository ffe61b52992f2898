package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/fetch"
)

// Cache file names shared by fetch and ingest so the two commands agree
// on where each source lands.
const (
	regionsArchiveName = "regions.zip"
	indicatorsPrefix   = "indicators"
	storesPrefix       = "stores"
)

func sourceFileName(prefix, format string) string {
	if format == "" {
		format = "csv"
	}
	return prefix + "." + format
}

// newCache builds the download cache from the data config.
func newCache() *fetch.Cache {
	fc := cfg.Data.Fetch
	httpFetcher := fetch.NewHTTPFetcher(fetch.HTTPOptions{
		UserAgent:  "foodaccess/1.0",
		Timeout:    time.Duration(fc.TimeoutSecs) * time.Second,
		MaxRetries: fc.Retries,
		Rate:       rate.Limit(fc.RatePerSec),
	})
	ftpFetcher := fetch.NewFTPFetcher(fetch.FTPOptions{
		User:     cfg.Data.FTP.User,
		Password: cfg.Data.FTP.Password,
		Timeout:  time.Duration(fc.TimeoutSecs) * time.Second,
	})
	return fetch.NewCache(cfg.Data.Dir, httpFetcher, ftpFetcher)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the study inputs into the local cache",
	Long: `Downloads the community-area boundary shapefile, the socioeconomic
indicator table and the grocery store extract into data.dir. Sources
already present are kept; delete a file (or the directory) to force a
fresh pull.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "fetch"))
		cache := newCache()

		maxConc := cfg.Data.Fetch.MaxConcurrency
		if maxConc <= 0 {
			maxConc = 3
		}

		start := time.Now()
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConc)

		g.Go(func() error {
			shp, err := cache.EnsureShapefile(ctx, cfg.Data.Regions.URL, regionsArchiveName)
			if err != nil {
				return eris.Wrap(err, "fetch: regions")
			}
			log.Info("regions ready", zap.String("shp", shp))
			return nil
		})
		g.Go(func() error {
			path, err := cache.Ensure(ctx, cfg.Data.Indicators.URL, sourceFileName(indicatorsPrefix, cfg.Data.Indicators.Format))
			if err != nil {
				return eris.Wrap(err, "fetch: indicators")
			}
			log.Info("indicators ready", zap.String("path", path))
			return nil
		})
		g.Go(func() error {
			path, err := cache.Ensure(ctx, cfg.Data.Stores.URL, sourceFileName(storesPrefix, cfg.Data.Stores.Format))
			if err != nil {
				return eris.Wrap(err, "fetch: stores")
			}
			log.Info("stores ready", zap.String("path", path))
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("Fetched 3 sources into %s in %s\n", cache.Dir(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

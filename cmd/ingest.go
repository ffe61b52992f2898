package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/dataset"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/fetch"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/geodata"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Assemble and persist a dataset from the cached sources",
	Long: `Parses the cached boundary shapefile, indicator table and store
extract into a region-aligned dataset: joins indicators per the variable
spec, assigns store points to community areas, derives the access metric
and stores the snapshot. Run fetch first, or point the --regions,
--indicators and --stores flags at local files.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "ingest"))
		start := time.Now()

		shpPath, err := resolveShapefile(cmd)
		if err != nil {
			return err
		}
		regions, err := geodata.LoadRegions(shpPath, geodata.ReadOptions{
			IDField:   cfg.Data.Regions.IDField,
			NameField: cfg.Data.Regions.NameField,
		})
		if err != nil {
			return eris.Wrap(err, "ingest: load regions")
		}
		log.Info("regions loaded", zap.Int("count", len(regions)), zap.String("shp", shpPath))

		vars, err := loadVariables()
		if err != nil {
			return err
		}

		tbl, err := readIndicatorTable(ctx, cmd, vars.IDColumn)
		if err != nil {
			return err
		}

		frame, actions, err := dataset.Build(regions, tbl, vars)
		if err != nil {
			return eris.Wrap(err, "ingest: build frame")
		}

		points, err := readStorePoints(ctx, cmd)
		if err != nil {
			return err
		}
		asn := geodata.AssignPoints(regions, points)
		log.Info("store points assigned",
			zap.Int("points", len(points)),
			zap.Int("unmatched", len(asn.Unmatched)),
		)

		derived, err := dataset.DeriveAccess(frame, asn.Counts, vars, cfg.Analysis.Response)
		if err != nil {
			return eris.Wrap(err, "ingest: derive access metric")
		}
		actions = append(actions, derived...)

		ds := &model.Dataset{
			ID:        uuid.New().String(),
			Regions:   regions,
			Frame:     frame,
			Counts:    asn.Counts,
			Unmatched: len(asn.Unmatched),
			Checksum:  model.FrameChecksum(frame, asn.Counts),
			CreatedAt: time.Now().UTC(),
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		if err := st.SaveDataset(ctx, ds); err != nil {
			return eris.Wrap(err, "ingest: save dataset")
		}

		log.Info("dataset persisted",
			zap.String("dataset_id", ds.ID),
			zap.String("checksum", ds.Checksum),
			zap.Int("cleaned_values", len(actions)),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Printf("Dataset %s: %d regions, %d stores matched, %d unmatched, checksum %s\n",
			ds.ID, len(regions), sumCounts(asn.Counts), ds.Unmatched, ds.Checksum)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("regions", "", "path to a local .shp file (default: the fetch cache)")
	ingestCmd.Flags().String("indicators", "", "path to a local indicator table (default: the fetch cache)")
	ingestCmd.Flags().String("stores", "", "path to a local store extract (default: the fetch cache)")
	ingestCmd.Flags().String("filter", "", "comma-separated category terms to keep from the store extract")
	rootCmd.AddCommand(ingestCmd)
}

// resolveShapefile returns the .shp to load: the --regions flag, or the
// member extracted from the cached archive by fetch.
func resolveShapefile(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("regions"); path != "" {
		return path, nil
	}
	extractDir := filepath.Join(cfg.Data.Dir, strings.TrimSuffix(regionsArchiveName, ".zip"))
	shpPath, err := fetch.FindByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "ingest: no cached shapefile (run fetch first or pass --regions)")
	}
	return shpPath, nil
}

// loadVariables reads the configured variable spec, falling back to the
// built-in Chicago defaults when no file is present.
func loadVariables() (*dataset.Variables, error) {
	path := cfg.Data.VariablesFile
	if path == "" {
		return dataset.DefaultVariables(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		zap.L().Debug("ingest: variables file absent, using defaults", zap.String("path", path))
		return dataset.DefaultVariables(), nil
	}
	vars, err := dataset.LoadVariables(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: load variables")
	}
	return vars, nil
}

func readIndicatorTable(ctx context.Context, cmd *cobra.Command, idColumn string) (*dataset.Table, error) {
	path, _ := cmd.Flags().GetString("indicators")
	format := cfg.Data.Indicators.Format
	if path == "" {
		path = filepath.Join(cfg.Data.Dir, sourceFileName(indicatorsPrefix, format))
	} else if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		format = ext
	}

	switch format {
	case "xlsx":
		tbl, err := dataset.ReadXLSXTable(path, dataset.XLSXOptions{}, idColumn)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read indicators")
		}
		return tbl, nil
	case "csv", "json":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: open indicators")
		}
		defer f.Close() //nolint:errcheck
		var tbl *dataset.Table
		if format == "json" {
			tbl, err = dataset.ReadJSONTable(ctx, f, idColumn)
		} else {
			tbl, err = dataset.ReadCSVTable(ctx, f, idColumn)
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read indicators")
		}
		return tbl, nil
	}
	return nil, eris.Errorf("ingest: unsupported indicator format %q", format)
}

func readStorePoints(ctx context.Context, cmd *cobra.Command) ([]model.StorePoint, error) {
	path, _ := cmd.Flags().GetString("stores")
	format := cfg.Data.Stores.Format
	if path == "" {
		path = filepath.Join(cfg.Data.Dir, sourceFileName(storesPrefix, format))
	} else if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		format = ext
	}

	var filter dataset.StoreFilter
	if terms, _ := cmd.Flags().GetString("filter"); terms != "" {
		for _, term := range strings.Split(terms, ",") {
			if term = strings.TrimSpace(term); term != "" {
				filter = append(filter, term)
			}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open stores")
	}
	defer f.Close() //nolint:errcheck

	switch format {
	case "json":
		points, err := dataset.ReadStoresJSON(ctx, f, filter)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read stores")
		}
		return points, nil
	case "csv":
		points, err := dataset.ReadStoresCSV(ctx, f, dataset.DefaultStoreColumns(), filter)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read stores")
		}
		return points, nil
	}
	return nil, eris.Errorf("ingest: unsupported store format %q", format)
}

func sumCounts(counts []int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/spatial"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Inspect the neighbor structure of a dataset",
	Long: `Builds the contiguity weights for a dataset without running an
analysis and prints the structure: region and edge counts, the weight
sums entering Moran's I, a degree histogram and any island regions.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var ds *model.Dataset
		if id, _ := cmd.Flags().GetString("dataset"); id != "" {
			ds, err = st.GetDataset(ctx, id)
		} else {
			ds, err = st.LatestDataset(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "weights")
		}

		contStr, _ := cmd.Flags().GetString("contiguity")
		if contStr == "" {
			contStr = cfg.Analysis.Contiguity
		}
		contiguity, err := spatial.ParseContiguity(contStr)
		if err != nil {
			return err
		}
		styleStr, _ := cmd.Flags().GetString("style")
		if styleStr == "" {
			styleStr = cfg.Analysis.Weights
		}
		style, err := spatial.ParseWeightStyle(styleStr)
		if err != nil {
			return err
		}

		geoms := make([]*geom.MultiPolygon, len(ds.Regions))
		for i := range ds.Regions {
			geoms[i] = ds.Regions[i].Geometry
		}
		nl, err := spatial.BuildNeighbors(geoms, spatial.NeighborOptions{Contiguity: contiguity})
		if err != nil {
			return eris.Wrap(err, "weights: build neighbors")
		}
		w := spatial.BuildWeights(nl, style)

		formatWeights(os.Stdout, ds, nl, w, contiguity, style)
		return nil
	},
}

func init() {
	weightsCmd.Flags().String("dataset", "", "dataset ID to inspect (default: most recent)")
	weightsCmd.Flags().String("contiguity", "", "queen or rook (default: from config)")
	weightsCmd.Flags().String("style", "", "row or binary (default: from config)")
	rootCmd.AddCommand(weightsCmd)
}

// formatWeights prints the neighbor structure report.
func formatWeights(out io.Writer, ds *model.Dataset, nl *spatial.NeighborList, w *spatial.Weights,
	contiguity spatial.Contiguity, style spatial.WeightStyle) {

	fmt.Fprintf(out, "Dataset %s: %d regions, %s contiguity, %s weights\n",
		truncateID(ds.ID), nl.Len(), contiguity, style)
	fmt.Fprintf(out, "Edges: %d   S0 %.4f   S1 %.4f   S2 %.4f\n\n", nl.EdgeCount(), w.S0(), w.S1(), w.S2())

	// Degree histogram.
	hist := make(map[int]int)
	for i := 0; i < nl.Len(); i++ {
		hist[nl.Degree(i)]++
	}
	degrees := make([]int, 0, len(hist))
	for d := range hist {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DEGREE\tREGIONS")
	_, _ = fmt.Fprintln(tw, "------\t-------")
	for _, d := range degrees {
		_, _ = fmt.Fprintf(tw, "%d\t%d\n", d, hist[d])
	}
	_ = tw.Flush()

	islands := nl.Islands()
	if len(islands) == 0 {
		fmt.Fprintln(out, "\nNo islands.")
		return
	}
	fmt.Fprintf(out, "\nIslands (%d):\n", len(islands))
	for _, i := range islands {
		fmt.Fprintf(out, "  %s  %s\n", ds.Regions[i].ID, ds.Regions[i].Name)
	}
}

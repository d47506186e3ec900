// Command fastmks performs exact max-kernel search on CSV point sets.
//
// Input files hold one point per row. Output files hold one row per
// query point with k comma-separated entries, best match first.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hupe1980/fastmks"
	"github.com/hupe1980/fastmks/kernel"
	"github.com/hupe1980/fastmks/matrix"
)

var (
	flagReferenceFile   string
	flagQueryFile       string
	flagK               int
	flagKernel          string
	flagDegree          float64
	flagOffset          float64
	flagBandwidth       float64
	flagScale           float64
	flagSingle          bool
	flagNaive           bool
	flagBase            float64
	flagIndicesFile     string
	flagKernelsFile     string
	flagInputModelFile  string
	flagOutputModelFile string
	flagVerbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "fastmks",
	Short: "Exact fast max-kernel search",
	Long: `fastmks finds, for each query point, the k reference points with the
largest kernel evaluation. Search is exact; cover trees over the reference
(and query) sets prune kernel evaluations that cannot enter the result.

Examples:
  fastmks --reference-file refs.csv --k 10 --kernel linear --indices-file out.csv
  fastmks --reference-file refs.csv --query-file q.csv --k 5 --kernel polynomial --degree 3
  fastmks --reference-file refs.csv --k 10 --output-model-file model.fmks
  fastmks --input-model-file model.fmks --query-file q.csv --k 10 --kernel linear`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()

	f.StringVarP(&flagReferenceFile, "reference-file", "r", "", "CSV file containing the reference points, one per row")
	f.StringVarP(&flagQueryFile, "query-file", "q", "", "CSV file containing the query points, one per row (defaults to the reference set)")
	f.IntVarP(&flagK, "k", "k", 0, "Number of max-kernel candidates per query")
	f.StringVarP(&flagKernel, "kernel", "K", "linear", "Kernel to use: linear|polynomial|cosine|gaussian|epanechnikov|triangular|hyptan")
	f.Float64VarP(&flagDegree, "degree", "d", 2.0, "Degree of the polynomial kernel")
	f.Float64VarP(&flagOffset, "offset", "o", 0.0, "Offset of the polynomial or hyptan kernel")
	f.Float64VarP(&flagBandwidth, "bandwidth", "w", 1.0, "Bandwidth of the gaussian, epanechnikov, or triangular kernel")
	f.Float64VarP(&flagScale, "scale", "s", 1.0, "Scale of the hyptan kernel")
	f.BoolVar(&flagSingle, "single", false, "Use single-tree traversal instead of dual-tree")
	f.BoolVar(&flagNaive, "naive", false, "Use brute-force search with no trees")
	f.Float64VarP(&flagBase, "base", "b", 0, "Expansion base of the cover trees (must be > 1)")
	f.StringVarP(&flagIndicesFile, "indices-file", "i", "", "File to write the matched reference indices to")
	f.StringVarP(&flagKernelsFile, "kernels-file", "p", "", "File to write the kernel values to")
	f.StringVarP(&flagInputModelFile, "input-model-file", "m", "", "File to load a prebuilt model from")
	f.StringVarP(&flagOutputModelFile, "output-model-file", "M", "", "File to save the built model to")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if flagReferenceFile == "" && flagInputModelFile == "" {
		return fmt.Errorf("either --reference-file or --input-model-file must be given")
	}

	if flagReferenceFile != "" && flagInputModelFile != "" {
		return fmt.Errorf("--reference-file and --input-model-file are mutually exclusive")
	}

	if flagK <= 0 {
		return fmt.Errorf("--k must be positive, got %d", flagK)
	}

	kern, err := buildKernel()
	if err != nil {
		return err
	}

	opts := searchOptions()

	mks, err := buildOrLoad(kern, opts)
	if err != nil {
		return err
	}

	if flagOutputModelFile != "" {
		if err := saveModel(mks); err != nil {
			return err
		}
	}

	results, err := runSearch(ctx, mks)
	if err != nil {
		return err
	}

	if err := writeResults(results); err != nil {
		return err
	}

	return nil
}

func buildKernel() (kernel.Kernel, error) {
	switch flagKernel {
	case "linear":
		return kernel.Linear{}, nil
	case "polynomial":
		return kernel.Polynomial{Degree: flagDegree, Offset: flagOffset}, nil
	case "cosine":
		return kernel.Cosine{}, nil
	case "gaussian":
		return kernel.Gaussian{Bandwidth: flagBandwidth}, nil
	case "epanechnikov":
		return kernel.Epanechnikov{Bandwidth: flagBandwidth}, nil
	case "triangular":
		return kernel.Triangular{Bandwidth: flagBandwidth}, nil
	case "hyptan":
		return kernel.HyperbolicTangent{Scale: flagScale, Offset: flagOffset}, nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", flagKernel)
	}
}

func searchOptions() []fastmks.Option {
	var optFns []fastmks.Option

	switch {
	case flagNaive:
		optFns = append(optFns, fastmks.WithMode(fastmks.ModeNaive))
	case flagSingle:
		optFns = append(optFns, fastmks.WithMode(fastmks.ModeSingle))
	}

	if flagBase > 0 {
		optFns = append(optFns, fastmks.WithBase(flagBase))
	}

	if flagVerbose {
		optFns = append(optFns, fastmks.WithLogLevel(slog.LevelDebug))
	}

	return optFns
}

func buildOrLoad(kern kernel.Kernel, optFns []fastmks.Option) (*fastmks.FastMKS[kernel.Kernel], error) {
	if flagInputModelFile != "" {
		f, err := os.Open(flagInputModelFile)
		if err != nil {
			return nil, fmt.Errorf("open model: %w", err)
		}
		defer f.Close()

		mks, err := fastmks.LoadModel[kernel.Kernel](f, kern, optFns...)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}

		return mks, nil
	}

	refs, err := loadCSV(flagReferenceFile)
	if err != nil {
		return nil, fmt.Errorf("load reference set: %w", err)
	}

	mks, err := fastmks.New[kernel.Kernel](refs, kern, optFns...)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	return mks, nil
}

func saveModel(mks *fastmks.FastMKS[kernel.Kernel]) error {
	f, err := os.Create(flagOutputModelFile)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer f.Close()

	if err := mks.SaveModel(f); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	return f.Close()
}

func runSearch(ctx context.Context, mks *fastmks.FastMKS[kernel.Kernel]) (*fastmks.Results, error) {
	if flagQueryFile == "" {
		return mks.Search(ctx, flagK)
	}

	queries, err := loadCSV(flagQueryFile)
	if err != nil {
		return nil, fmt.Errorf("load query set: %w", err)
	}

	return mks.SearchFor(ctx, queries, flagK)
}

// loadCSV reads a CSV file with one point per row and returns the points
// as matrix columns.
func loadCSV(path string) (*matrix.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, matrix.ErrEmptySet)
	}

	dim := len(records[0])
	cols := make([][]float64, len(records))

	for i, rec := range records {
		if len(rec) != dim {
			return nil, fmt.Errorf("%s: row %d has %d fields, want %d", path, i, len(rec), dim)
		}

		point := make([]float64, dim)
		for j, field := range rec {
			point[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d field %d: %w", path, i, j, err)
			}
		}

		cols[i] = point
	}

	return matrix.NewDenseFromColumns(cols)
}

func writeResults(results *fastmks.Results) error {
	if flagIndicesFile != "" {
		if err := writeCSV(flagIndicesFile, results, func(q, i int) string {
			return strconv.Itoa(results.Index(i, q))
		}); err != nil {
			return fmt.Errorf("write indices: %w", err)
		}
	}

	if flagKernelsFile != "" {
		if err := writeCSV(flagKernelsFile, results, func(q, i int) string {
			return strconv.FormatFloat(results.Value(i, q), 'g', -1, 64)
		}); err != nil {
			return fmt.Errorf("write kernels: %w", err)
		}
	}

	if flagIndicesFile == "" && flagKernelsFile == "" {
		for q := 0; q < results.NumQueries(); q++ {
			for i := 0; i < results.K(); i++ {
				fmt.Printf("query %d: index %d, kernel %g\n", q, results.Index(i, q), results.Value(i, q))
			}
		}
	}

	return nil
}

// writeCSV writes one row per query with k entries produced by cell.
func writeCSV(path string, results *fastmks.Results, cell func(q, i int) string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	row := make([]string, results.K())
	for q := 0; q < results.NumQueries(); q++ {
		for i := range row {
			row[i] = cell(q, i)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return f.Close()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"campaignclean/internal/dataprocessing"
	"campaignclean/internal/files"
	"campaignclean/internal/infrastructure"
	"campaignclean/internal/operations"
	"campaignclean/internal/validation"
	"campaignclean/pkg/contracts"
)

// errJobsFailed makes the process exit non-zero after the summary is printed.
var errJobsFailed = errors.New("one or more files failed to clean")

type cleanOptions struct {
	out       string
	workers   int
	marker    string
	matchMode string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "campaign-clean",
		Short:         "Normalize campaign names in CSV files",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	logger := func() *slog.Logger {
		return infrastructure.NewLoggerWithWriter(stderr, logLevel)
	}

	root.AddCommand(newCleanCmd(logger), newNormalizeCmd())
	return root
}

func newCleanCmd(logger func() *slog.Logger) *cobra.Command {
	opts := cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean [files or directories...]",
		Short: "Clean CSV files and write cleaned_<name> copies",
		Long: "Clean every CSV file given, or every .csv file inside the directories given. " +
			"Cleaned files are written to --out and the batch summary is printed as JSON.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), cmd.OutOrStdout(), logger(), opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "cleaned", "Output directory")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", operations.DefaultWorkers, "Files cleaned concurrently")
	cmd.Flags().StringVar(&opts.marker, "marker", dataprocessing.CampaignMarker, "Header fragment of the column to clean")
	cmd.Flags().StringVar(&opts.matchMode, "match", "contains", "Header matching: contains or nfkc")
	return cmd
}

func runClean(ctx context.Context, stdout io.Writer, logger *slog.Logger, opts cleanOptions, args []string) error {
	if opts.workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", opts.workers)
	}

	validator := validation.NewFileValidator(logger)
	paths, err := validator.ExpandInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no CSV files to clean")
	}
	if err := validator.ValidateOutputDirectory(opts.out); err != nil {
		return err
	}

	store, err := files.NewLocalStore(opts.out, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, skipped := buildJobs(paths)

	processor := dataprocessing.NewProcessor(dataprocessing.NewColumnMatcher(opts.matchMode, opts.marker), logger)
	dispatcher := operations.NewDispatcher(processor, store,
		operations.WithWorkers(opts.workers),
		operations.WithLogger(logger))

	summary := dispatcher.Run(ctx, jobs)
	summary.ID = uuid.NewString()
	if len(skipped) > 0 {
		summary.Skipped = skipped
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if summary.HasFailures() {
		return errJobsFailed
	}
	return nil
}

// buildJobs turns paths into jobs named by base name. A later path whose base
// name is already taken would overwrite the same output, so it is skipped.
func buildJobs(paths []string) ([]operations.Job, []string) {
	seen := make(map[string]bool, len(paths))
	jobs := make([]operations.Job, 0, len(paths))
	var skipped []string

	for _, p := range paths {
		name := filepath.Base(p)
		if seen[name] {
			skipped = append(skipped, p)
			continue
		}
		seen[name] = true

		path := p
		jobs = append(jobs, operations.Job{
			Name: name,
			Open: func(context.Context) (io.ReadCloser, error) {
				return os.Open(path)
			},
		})
	}
	return jobs, skipped
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [values...]",
		Short: "Print the normalized form of each value",
		Long:  "Normalize each argument, or each line of standard input when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				for _, v := range args {
					fmt.Fprintln(out, dataprocessing.NormalizeText(v))
				}
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
			for scanner.Scan() {
				fmt.Fprintln(out, dataprocessing.NormalizeText(scanner.Text()))
			}
			return scanner.Err()
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/kikiluvv/highlighter/internal/clips"
	"github.com/kikiluvv/highlighter/internal/config"
	"github.com/kikiluvv/highlighter/internal/ffmpeg"
	"github.com/kikiluvv/highlighter/internal/gui"
	"github.com/kikiluvv/highlighter/internal/highlight"
	"github.com/kikiluvv/highlighter/internal/logging"
	"github.com/kikiluvv/highlighter/internal/pipeline"
	"github.com/kikiluvv/highlighter/internal/progress"
	"github.com/kikiluvv/highlighter/internal/session"
	"github.com/kikiluvv/highlighter/internal/watch"
	"github.com/kikiluvv/highlighter/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "highlighter",
	Short: "highlighter - loudness-based highlight reels",
	Long:  "Finds the loudest passages of a recording, cuts a clip around each and joins the ones you keep into a highlight reel.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./highlighter.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	for _, cmd := range []*cobra.Command{analyzeCmd, reviewCmd, watchCmd} {
		cmd.Flags().Int("count", 0, "number of highlights (default from config)")
		cmd.Flags().Duration("duration", 0, "clip duration (default from config)")
		cmd.Flags().Float64("threshold", 0, "peak threshold on normalized energy (default from config)")
	}

	analyzeCmd.Flags().Bool("keep", false, "stop after extraction and keep the workspace for assemble/review")
	analyzeCmd.Flags().String("energy", "", "write the energy profile as CSV to this file")
	analyzeCmd.Flags().StringP("output", "o", "", "output file (default: highlights_<unix>.mp4 in work_dir)")

	assembleCmd.Flags().StringP("output", "o", "", "output file (default: highlights_<unix>.mp4 in work_dir)")
	assembleCmd.Flags().IntSlice("exclude", nil, "clip numbers (1-based) to leave out")
	assembleCmd.Flags().Bool("release", false, "remove the workspace after assembling")

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd, configInitCmd)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input]",
	Short: "Detect highlights and build the reel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		opts, err := analyzeOptions(cmd, cfg)
		if err != nil {
			return err
		}

		bar, stopBars := startBars()
		defer stopBars()

		pipe, err := newPipeline(cfg, bar)
		if err != nil {
			return err
		}

		ws, err := session.Acquire(cfg.TempDir)
		if err != nil {
			return err
		}

		keep, _ := cmd.Flags().GetBool("keep")
		if !keep {
			defer releaseWorkspace(ws)
		}

		energy, _ := cmd.Flags().GetString("energy")
		analysis, err := analyzeAndExport(cmd.Context(), pipe, args[0], ws, opts, energy)
		if err != nil {
			return err
		}

		if keep {
			stopBars()
			fmt.Println(ws.Path(session.ManifestName))
			return nil
		}

		output, _ := cmd.Flags().GetString("output")
		out, err := pipe.Assemble(cmd.Context(), analysis.Project, pipeline.AssembleOptions{Output: output})
		if err != nil {
			return err
		}

		stopBars()
		fmt.Println(out)
		return nil
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble [project.json]",
	Short: "Join the included clips of an analyzed project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		project, err := session.Load(args[0])
		if err != nil {
			return err
		}

		manager := project.Manager()
		exclude, _ := cmd.Flags().GetIntSlice("exclude")
		for _, n := range exclude {
			if err := manager.SetIncluded(n-1, false); err != nil {
				return fmt.Errorf("--exclude %d: %w", n, err)
			}
		}

		bar, stopBars := startBars()
		defer stopBars()

		pipe, err := newPipeline(cfg, bar)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		out, err := pipe.Assemble(cmd.Context(), project, pipeline.AssembleOptions{Output: output})
		if err != nil {
			return err
		}

		if release, _ := cmd.Flags().GetBool("release"); release {
			ws, err := project.OpenWorkspace()
			if err != nil {
				return err
			}
			releaseWorkspace(ws)
		} else if err := project.Save(args[0]); err != nil {
			return err
		}

		stopBars()
		fmt.Println(out)
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review [input|project.json]",
	Short: "Pick highlights in a window and assemble them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		pipe, err := newPipeline(cfg, progress.NewLogObserver(log.Logger))
		if err != nil {
			return err
		}

		var (
			project *session.Project
			ws      *session.Workspace
		)
		if strings.HasSuffix(args[0], ".json") {
			project, err = session.Load(args[0])
			if err != nil {
				return err
			}
			ws, err = project.OpenWorkspace()
			if err != nil {
				return err
			}
		} else {
			opts, err := analyzeOptions(cmd, cfg)
			if err != nil {
				return err
			}
			ws, err = session.Acquire(cfg.TempDir)
			if err != nil {
				return err
			}
			analysis, err := runAnalysis(cmd.Context(), pipe, args[0], ws, opts)
			if err != nil {
				releaseWorkspace(ws)
				return err
			}
			project = analysis.Project
		}

		assemble := func(ctx context.Context, p *session.Project) (string, error) {
			return pipe.Assemble(ctx, p, pipeline.AssembleOptions{})
		}
		gui.Run(project, assemble, ws.Release)

		// keep toggles for a later assemble unless the workspace is gone
		if ws.Err() == nil {
			return project.Save(ws.Path(session.ManifestName))
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Build a reel for every recording dropped into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		opts, err := analyzeOptions(cmd, cfg)
		if err != nil {
			return err
		}

		pipe, err := newPipeline(cfg, progress.NewLogObserver(log.Logger))
		if err != nil {
			return err
		}

		handler := func(ctx context.Context, input string) error {
			ws, err := session.Acquire(cfg.TempDir)
			if err != nil {
				return err
			}
			defer releaseWorkspace(ws)

			analysis, err := runAnalysis(ctx, pipe, input, ws, opts)
			if err != nil {
				return err
			}
			out, err := pipe.Assemble(ctx, analysis.Project, pipeline.AssembleOptions{})
			if err != nil {
				return err
			}
			log.Info().Str("input", input).Str("output", out).Msg("highlight reel ready")
			return nil
		}

		w, err := watch.New(log.Logger, args[0], watch.Options{
			Extensions: cfg.Watch.Extensions,
			Settle:     cfg.Watch.Settle,
		}, handler)
		if err != nil {
			return err
		}

		return w.Run(cmd.Context())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "highlighter.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		force, _ := cmd.Flags().GetBool("force")
		if util.FileExists(path) && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

// analyzeOptions merges command flags over config defaults and checks the
// result against the configured limits.
func analyzeOptions(cmd *cobra.Command, cfg *config.Config) (pipeline.AnalyzeOptions, error) {
	opts := pipeline.DefaultAnalyzeOptions(cfg)

	if count, _ := cmd.Flags().GetInt("count"); count != 0 {
		opts.TargetCount = count
	}
	if duration, _ := cmd.Flags().GetDuration("duration"); duration != 0 {
		opts.ClipDuration = duration
	}
	if threshold, _ := cmd.Flags().GetFloat64("threshold"); threshold != 0 {
		opts.Threshold = threshold
	}

	if err := cfg.CheckParams(opts.TargetCount, opts.ClipDuration, opts.Threshold); err != nil {
		return opts, err
	}
	return opts, nil
}

// startBars routes logging above the progress bars until stop is called
func startBars() (*progress.BarObserver, func()) {
	bar := progress.NewBarObserver(os.Stderr)
	logging.InitWithWriter(bar.Writer(), verbose)
	return bar, func() {
		bar.Finish()
		logging.Init(verbose)
	}
}

func newPipeline(cfg *config.Config, observer progress.Observer) (*pipeline.Pipeline, error) {
	tool, err := ffmpeg.New(log.Logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}
	return pipeline.New(log.Logger, pipeline.ConfigFrom(cfg), tool, observer), nil
}

func runAnalysis(ctx context.Context, pipe *pipeline.Pipeline, input string, ws *session.Workspace, opts pipeline.AnalyzeOptions) (*pipeline.Analysis, error) {
	if !util.FileExists(input) {
		return nil, fmt.Errorf("input %s does not exist", input)
	}

	analysis, err := pipe.Analyze(ctx, input, ws, opts)
	if errors.Is(err, highlight.ErrEmptyInput) {
		log.Warn().Str("input", input).Msg("no highlights found")
	}
	if err != nil {
		return nil, err
	}

	for _, c := range analysis.Project.Clips {
		event := log.Info()
		if !c.Materialized() {
			event = log.Warn()
		}
		event.
			Str("clip", c.Label()).
			Str("start", util.FormatClock(c.Window.Start)).
			Str("end", util.FormatClock(c.Window.End)).
			Float64("score", c.Score).
			Bool("extracted", c.Materialized()).
			Msg("highlight")
	}
	for _, f := range analysis.Failures {
		log.Warn().Err(f).Msg("clip skipped")
	}

	if analysis.Extracted() == 0 {
		return analysis, clips.ErrNoClips
	}
	return analysis, nil
}

// analyzeAndExport runs the analysis and writes the energy profile to
// energyPath when set. The profile is written even when no clip could be
// extracted.
func analyzeAndExport(ctx context.Context, pipe *pipeline.Pipeline, input string, ws *session.Workspace, opts pipeline.AnalyzeOptions, energyPath string) (*pipeline.Analysis, error) {
	analysis, err := runAnalysis(ctx, pipe, input, ws, opts)
	if analysis != nil && energyPath != "" {
		if werr := writeEnergy(energyPath, analysis); werr != nil {
			return nil, errors.Join(err, werr)
		}
	}
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

func writeEnergy(path string, analysis *pipeline.Analysis) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close energy profile: %w", cerr)
		}
	}()

	if err := analysis.Detection.Profile.WriteCSV(f); err != nil {
		return fmt.Errorf("failed to write energy profile: %w", err)
	}
	log.Info().Str("path", path).Msg("energy profile written")
	return nil
}

func releaseWorkspace(ws *session.Workspace) {
	if err := ws.Release(); err != nil {
		log.Warn().Err(err).Msg("failed to clean up workspace")
	}
}

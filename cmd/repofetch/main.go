package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantmind-br/repofetch-go/internal/app"
	"github.com/quantmind-br/repofetch-go/internal/config"
	"github.com/quantmind-br/repofetch-go/internal/domain"
	"github.com/quantmind-br/repofetch-go/internal/gitutil"
	"github.com/quantmind-br/repofetch-go/internal/runner"
	"github.com/quantmind-br/repofetch-go/internal/utils"
	"github.com/quantmind-br/repofetch-go/pkg/version"
)

var (
	cfgFile string
	verbose bool
	log     *utils.Logger

	// Dependencies for testing
	execLookPath = exec.LookPath
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repofetch <repository-url>",
	Short: "Clone a repository with live progress and safe cancellation",
	Long: `RepoFetch supervises a git clone: it streams the clone's output,
turns it into live progress, and guarantees the whole process tree is
killed when the operation is cancelled (Ctrl-C).

The final install path, branch and commit are persisted to the config
file for later runs to pick up.`,
	Version: version.Short(),
	Args:    cobra.MaximumNArgs(1),
	RunE:    run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.repofetch/config.yaml)")
	rootCmd.PersistentFlags().StringP("dir", "d", "", "Install directory (repository is cloned underneath it)")
	rootCmd.PersistentFlags().StringP("branch", "b", "", "Branch to clone (default: detected from the remote)")
	rootCmd.PersistentFlags().String("name", "", "Task name used in messages and logs")
	rootCmd.PersistentFlags().String("git", "", "Path to the git binary")
	rootCmd.PersistentFlags().Bool("no-progress", false, "Disable the progress bar")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("install.directory", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("git.path", rootCmd.PersistentFlags().Lookup("git"))

	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logLevel := "info"
	if verbose {
		logLevel = "debug"
	}
	log = utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  "pretty",
		Verbose: verbose,
	})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) == 0 {
		return cmd.Help()
	}
	url := args[0]

	branch, _ := cmd.Flags().GetString("branch")
	name, _ := cmd.Flags().GetString("name")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if name == "" {
		name = gitutil.RepoDirName(url)
	}

	// Handle graceful shutdown: the signal cancels the context, the
	// orchestrator forwards that to the runner which kills the process tree.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Cancelling clone...")
		cancel()
	}()

	var sink domain.ProgressSink
	var bar *utils.BarSink
	if !noProgress {
		bar = utils.NewBarSink(utils.DescCloning, os.Stderr)
		sink = bar
	}

	cloneRunner := runner.New(runner.Options{Logger: log, Sink: sink})
	store := config.NewStore(viper.GetViper(), cfgFile)

	orchestrator, err := app.NewOrchestrator(app.OrchestratorOptions{
		Config:   cfg,
		Logger:   log,
		Runner:   cloneRunner,
		Store:    store,
		Notifier: &consoleNotifier{},
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	task := domain.CloneTask{
		Name:    name,
		RepoURL: url,
		Branch:  branch,
		GitPath: cfg.Git.Path,
		WorkDir: cfg.Install.Directory,
	}

	result, err := orchestrator.Run(ctx, task)
	if bar != nil {
		bar.Finish()
	}
	if errors.Is(err, context.Canceled) {
		// Aborted by the user; not a failure.
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().Str("path", result.Path).Str("branch", result.Branch).Msg("done")
	return nil
}

// consoleNotifier prints user-facing messages to stdout; errors carry the
// underlying cause on stderr via the logger instead.
type consoleNotifier struct{}

func (consoleNotifier) Info(message string) {
	fmt.Println(message)
}

func (consoleNotifier) Error(message string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", message, err)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies",
	Long:  "Verifies that git and the configuration are in a usable state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking system dependencies...")
		allPassed := true

		cfg, cfgErr := config.Load()
		gitPath := config.DefaultGitPath
		if cfgErr == nil {
			gitPath = cfg.Git.Path
		}

		fmt.Print("  Git binary: ")
		if resolved, err := execLookPath(gitPath); err == nil {
			fmt.Printf("OK (%s)\n", resolved)
		} else {
			fmt.Println("NOT FOUND")
			allPassed = false
		}

		fmt.Print("  Config file: ")
		if cfgErr != nil {
			fmt.Printf("WARN (%v)\n", cfgErr)
		} else {
			fmt.Println("OK")
		}

		fmt.Print("  Install directory: ")
		dir := config.DefaultInstallDir
		if cfgErr == nil {
			dir = utils.ExpandPath(cfg.Install.Directory)
		}
		switch {
		case !utils.DirExists(dir):
			fmt.Printf("WARN (%s does not exist yet)\n", dir)
		case !utils.IsWritable(dir):
			fmt.Printf("FAILED (%s is not writable)\n", dir)
			allPassed = false
		default:
			fmt.Printf("OK (%s)\n", dir)
		}

		fmt.Println()
		if allPassed {
			fmt.Println("All critical checks passed!")
		} else {
			fmt.Println("Some checks failed. Please resolve the issues above.")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}

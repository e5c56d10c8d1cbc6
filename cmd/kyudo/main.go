// Package main provides the CLI entrypoint for kyudo.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/kyudo/internal/config"
	"github.com/verte-zerg/kyudo/internal/docsync"
	"github.com/verte-zerg/kyudo/internal/model"
	"github.com/verte-zerg/kyudo/internal/state"
	"github.com/verte-zerg/kyudo/internal/stats"
	"github.com/verte-zerg/kyudo/internal/store"
	"github.com/verte-zerg/kyudo/internal/tui"
)

const defaultTrendWindow = 5

var (
	rootDBPath    string
	rootDocID     string
	rootVerbose   bool
	rootForkAny   bool
	practiceArrow int

	statsWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "kyudo",
		Short:         "Kyudo practice recorder",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&rootDBPath, "db", "", "document store path (default: $XDG_DATA_HOME/kyudo/kyudo.db)")
	rootCmd.PersistentFlags().StringVar(&rootDocID, "doc-id", docsync.DefaultDocID, "practice document id")
	rootCmd.PersistentFlags().BoolVar(&rootVerbose, "verbose", false, "log a bulk export of every save")
	rootCmd.PersistentFlags().BoolVar(&rootForkAny, "fork-on-any-failure", false, "create a new document on any failed save")
	rootCmd.Flags().IntVar(&practiceArrow, "arrows", tui.DefaultArrows, "arrows per set")

	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newCloseCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// appConfig is the resolved configuration after flags, environment and the
// config file have been merged.
type appConfig struct {
	DBPath           string
	DocID            string
	Verbose          bool
	ForkOnAnyFailure bool
	Arrows           int
}

func resolveConfig(cmd *cobra.Command) (appConfig, error) {
	envCfg, err := config.LoadEnv()
	if err != nil {
		return appConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}
	cfgPath := envCfg.ConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	fileCfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return appConfig{}, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := appConfig{
		DBPath:           rootDBPath,
		DocID:            rootDocID,
		Verbose:          rootVerbose,
		ForkOnAnyFailure: rootForkAny,
		Arrows:           practiceArrow,
	}
	applyStringConfig(cmd, "db", &cfg.DBPath, fileCfg.Store.Path)
	applyStringConfig(cmd, "db", &cfg.DBPath, envString(envCfg.DBPath))
	applyStringConfig(cmd, "doc-id", &cfg.DocID, fileCfg.Store.DocID)
	applyStringConfig(cmd, "doc-id", &cfg.DocID, envString(envCfg.DocID))
	applyBoolConfig(cmd, "verbose", &cfg.Verbose, fileCfg.Sync.Verbose)
	applyBoolConfig(cmd, "fork-on-any-failure", &cfg.ForkOnAnyFailure, fileCfg.Sync.ForkOnAnyFailure)
	applyIntConfig(cmd, "arrows", &cfg.Arrows, fileCfg.Practice.Arrows)

	if cfg.DBPath == "" {
		cfg.DBPath = config.DefaultDBPath()
	}
	if err := validateConfig(cfg); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

func validateConfig(cfg appConfig) error {
	if strings.TrimSpace(cfg.DocID) == "" {
		return fmt.Errorf("--doc-id must not be empty")
	}
	if cfg.Arrows <= 0 {
		return fmt.Errorf("--arrows must be > 0")
	}
	return nil
}

// session bundles everything a command needs to read and save the practice
// document.
type session struct {
	store  *store.Store
	state  *state.Container
	engine *docsync.Engine
	loaded bool
}

func openSession(ctx context.Context, cfg appConfig, logger *log.Logger) (*session, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	c := state.New(model.State{})
	engine := docsync.New(st, c, docsync.Options{
		DocID:            cfg.DocID,
		ForkOnAnyFailure: cfg.ForkOnAnyFailure,
		Verbose:          cfg.Verbose,
		Logger:           logger,
	})
	loaded := engine.Load(ctx)
	return &session{store: st, state: c, engine: engine, loaded: loaded}, nil
}

func (s *session) close() {
	s.engine.Wait()
	if err := s.store.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func stderrLogger() *log.Logger {
	return log.New(os.Stderr, "kyudo: ", 0)
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// The terminal belongs to the TUI; save results are shown in its status line.
	sess, err := openSession(cmd.Context(), cfg, log.New(io.Discard, "", 0))
	if err != nil {
		return err
	}
	defer sess.close()

	m := tui.NewModel(sess.state, sess.engine, cfg.Arrows)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record SHOT...",
		Short: "Record one set and save it",
		Long: "Record one set and save it.\n\n" +
			"Shots are hit (o), miss (x) or shitsu (/). They can be given as\n" +
			"separate arguments or as one word, e.g. `kyudo record oox/`.",
		Args: cobra.MinimumNArgs(1),
		RunE: runRecordCmd,
	}
}

func runRecordCmd(cmd *cobra.Command, args []string) error {
	shots, err := parseShots(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := openSession(cmd.Context(), cfg, stderrLogger())
	if err != nil {
		return err
	}
	defer sess.close()

	if len(shots) != cfg.Arrows {
		logErrf("recording %d shots (a set has %d arrows)\n", len(shots), cfg.Arrows)
	}
	set := sess.state.RecordShots(shots...)
	res := sess.engine.Save(cmd.Context())
	if !res.OK() {
		return res.Err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "Recorded %s (%d/%d)\n\n", stats.FormatSet(set), set.Hits(), set.NumberOfShots()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSummary(out, sess.state.CurrentStatistics()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// parseShots accepts one shot per argument, or several shots packed into a
// single argument of one-letter glyphs.
func parseShots(args []string) ([]model.Shot, error) {
	var shots []model.Shot
	for _, arg := range args {
		shot, err := model.ParseShot(arg)
		if err == nil {
			shots = append(shots, shot)
			continue
		}
		if len([]rune(arg)) < 2 {
			return nil, fmt.Errorf("invalid shot %q: %w", arg, err)
		}
		for _, r := range arg {
			shot, rerr := model.ParseShot(string(r))
			if rerr != nil {
				return nil, fmt.Errorf("invalid shot %q: %w", arg, err)
			}
			shots = append(shots, shot)
		}
	}
	return shots, nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsWindow, "window", defaultTrendWindow, "moving average window in sets")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	if statsWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := openSession(cmd.Context(), cfg, stderrLogger())
	if err != nil {
		return err
	}
	defer sess.close()

	return renderStats(cmd.OutOrStdout(), sess.state.Snapshot(), statsWindow, stats.TerminalWidth())
}

func renderStats(w io.Writer, snap model.State, window, width int) error {
	sets := snap.Current.Sets
	if err := stats.RenderSummary(w, snap.Current.Statistics()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSets(w, sets); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderTrend(w, sets, window, width-30); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderHistory(w, stats.BuildReport(snap)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the current session and start a new one",
		Args:  cobra.NoArgs,
		RunE:  runCloseCmd,
	}
}

func runCloseCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := openSession(cmd.Context(), cfg, stderrLogger())
	if err != nil {
		return err
	}
	defer sess.close()

	closed := sess.state.Snapshot().Current.Statistics()
	if !sess.state.CloseSession() {
		logErrln("current session has no sets; nothing to close")
		return nil
	}
	res := sess.engine.Save(cmd.Context())
	if !res.OK() {
		return res.Err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Closed session: %d shots, hit rate %s\n", closed.Total, closed.FormatHitRate())
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every session as JSON lines, current first",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := openSession(cmd.Context(), cfg, stderrLogger())
	if err != nil {
		return err
	}
	defer sess.close()

	if !sess.loaded {
		logErrf("no document %q found\n", cfg.DocID)
	}
	n, err := docsync.WriteBulk(cmd.OutOrStdout(), model.ExportSessions(sess.state.Snapshot()))
	if err != nil {
		return err
	}
	if cfg.Verbose {
		logErrf("exported %d sessions\n", n)
	}
	return nil
}

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List stored practice documents",
		Long: "List stored practice documents.\n\n" +
			"A save that loses a revision conflict creates a new document; use\n" +
			"--doc-id to open one of them.",
		Args: cobra.NoArgs,
		RunE: runDocsCmd,
	}
}

func runDocsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ids, err := st.ListIDs(cmd.Context())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		logErrln("No documents found. Record a set with: kyudo record")
		return nil
	}
	for _, id := range ids {
		marker := " "
		if id == cfg.DocID {
			marker = "*"
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, id); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	envCfg, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	path := envCfg.ConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func envString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# kyudo configuration
# Uncomment a value to enable it. Environment variables (KYUDO_DB,
# KYUDO_DOC_ID) override the file; CLI flags override both.

[store]
# path = "/path/to/kyudo.db"    # Document store (default $XDG_DATA_HOME/kyudo/kyudo.db)
# doc-id = %q                # Practice document id

[sync]
# fork-on-any-failure = false   # Create a new document when any save step fails
# verbose = false               # Log a bulk export of every save

[practice]
# arrows = %d                    # Arrows per set
`,
		docsync.DefaultDocID,
		tui.DefaultArrows,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

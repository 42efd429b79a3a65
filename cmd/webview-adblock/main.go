package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/webview-adblock/internal/engine"
	"github.com/bnema/webview-adblock/internal/fetcher"
	"github.com/bnema/webview-adblock/internal/importer"
	"github.com/bnema/webview-adblock/internal/models"
	"github.com/bnema/webview-adblock/internal/storage"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     models.Config
	logger  *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webview-adblock",
	Short: "Request filtering engine for embedded web views",
	Long: `A content-filtering engine deciding whether web view sub-resource
requests should be blocked, fed by built-in rules, custom rules, and hosts
file subscriptions.`,
	SilenceUsage: true,
}

var checkCmd = &cobra.Command{
	Use:   "check URL...",
	Short: "Print the block/allow decision for each URL",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import hosts subscriptions and persist them",
	RunE:  runImport,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured and popular hosts subscriptions",
	RunE:  runSources,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show rule counts",
	RunE:  runStats,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove persisted imported hosts and sources",
	RunE:  runClear,
}

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Re-import a local hosts file whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	RunE:  runInit,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./configs/webview_adblock.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	checkCmd.Flags().Bool("disabled", false, "evaluate with the engine disabled")
	checkCmd.Flags().StringArrayP("rule", "r", nil, "extra custom rule (repeatable)")

	watchCmd.Flags().StringArray("check", nil, "URL to evaluate after every import (repeatable)")

	importCmd.Flags().StringArrayP("file", "f", nil, "local hosts file to import (repeatable)")
	importCmd.Flags().StringArrayP("url", "u", nil, "hosts subscription URL to import (repeatable)")
	importCmd.Flags().Bool("dry-run", false, "import without persisting")

	rootCmd.AddCommand(checkCmd, importCmd, sourcesCmd, statsCmd, clearCmd, watchCmd, initCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("webview_adblock")
		viper.SetConfigType("toml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("WEBVIEW_ADBLOCK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}

	var err error
	if cfg, err = decodeConfig(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
	}

	lvl := slog.LevelInfo
	if verbose {
		lvl = slogutil.LevelDebug
	}
	logger = slogutil.New(&slogutil.Config{
		Output:       os.Stderr,
		Format:       slogutil.FormatDefault,
		Level:        lvl,
		AddTimestamp: true,
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.connect_timeout", fetcher.DefaultConnectTimeout)
	v.SetDefault("http.read_timeout", fetcher.DefaultReadTimeout)
	v.SetDefault("http.user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("http.max_size", fetcher.DefaultMaxSize.String())
	v.SetDefault("http.parallel", 4)
	v.SetDefault("engine.enabled", true)
	v.SetDefault("engine.use_defaults", true)
	v.SetDefault("storage.dir", "./data")
}

// decodeConfig unmarshals v, parsing size and duration strings
func decodeConfig(v *viper.Viper) (c models.Config, err error) {
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	err = v.Unmarshal(&c, hook)

	return c, err
}

// app bundles the engine with its importer
type app struct {
	engine   *engine.Engine
	importer *importer.Importer
}

// newApp builds the engine from config and loads persisted hosts
func newApp(ctx context.Context, extraRules []string) (a *app, err error) {
	e := engine.New(&engine.Config{
		Logger:  logger.With(slogutil.KeyPrefix, "engine"),
		Enabled: cfg.Engine.Enabled,
	})

	rules := append(append([]string(nil), cfg.Engine.CustomRules...), extraRules...)
	if rejected := e.Initialize(rules, cfg.Engine.UseDefaults); rejected > 0 {
		logger.Warn("rejected custom rules", "count", rejected)
	}

	imp := importer.New(&importer.Config{
		Logger:   logger.With(slogutil.KeyPrefix, "importer"),
		Engine:   e,
		Fetcher:  fetcher.New(cfg.HTTP),
		Store:    storage.NewFileStore(cfg.Storage.Dir),
		Parallel: cfg.HTTP.Parallel,
	})

	if err = imp.Load(ctx); err != nil {
		return nil, err
	}

	return &app{engine: e, importer: imp}, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	disabled, _ := cmd.Flags().GetBool("disabled")
	rules, _ := cmd.Flags().GetStringArray("rule")

	a, err := newApp(cmd.Context(), rules)
	if err != nil {
		return err
	}

	if disabled {
		a.engine.SetEnabled(false)
	}

	for _, u := range args {
		fmt.Printf("%s  %s\n", decision(a.engine, u), u)
	}

	return nil
}

// decision renders the engine's verdict for u
func decision(e *engine.Engine, u string) string {
	if e.ShouldBlock(u) {
		return "BLOCK"
	}
	return "ALLOW"
}

func runImport(cmd *cobra.Command, args []string) error {
	files, _ := cmd.Flags().GetStringArray("file")
	urls, _ := cmd.Flags().GetStringArray("url")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if len(files) == 0 && len(urls) == 0 {
		for _, s := range cfg.EnabledSources() {
			urls = append(urls, s.URL)
		}
	}
	if len(files) == 0 && len(urls) == 0 {
		return fmt.Errorf("no sources given and no enabled sources in config")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Println("[DRY RUN] Nothing will be persisted")
	}

	failed := 0
	for _, f := range files {
		fmt.Printf("\n  Importing %s...\n", f)
		n, err := a.importer.ImportFile(ctx, f)
		if err != nil {
			fmt.Printf("    ERROR: %v\n", err)
			failed++
			continue
		}
		fmt.Printf("    Accepted: %d hosts\n", n)
	}

	for _, r := range a.importer.ImportURLs(ctx, urls) {
		fmt.Printf("\n  %s\n", r.URL)
		if r.Err != nil {
			fmt.Printf("    ERROR: %v\n", r.Err)
			failed++
			continue
		}
		fmt.Printf("    Accepted: %d hosts\n", r.Accepted)
	}

	fmt.Printf("\nTotal rules: %d\n", a.engine.RuleCount())

	if !dryRun {
		if err = a.importer.Save(ctx); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(files)+len(urls))
	}

	fmt.Println("\nDone!")
	return nil
}

func runSources(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}

	fmt.Println("Configured hosts sources:")
	fmt.Println()
	for _, s := range cfg.Sources {
		status := "enabled"
		if !s.Enabled {
			status = "disabled"
		}
		imported := ""
		if a.engine.IsSourceEnabled(s.URL) {
			imported = " (imported)"
		}
		fmt.Printf("  [%s] %s%s\n", status, s.Name, imported)
		fmt.Printf("         %s\n\n", s.URL)
	}

	fmt.Println("Popular hosts sources:")
	fmt.Println()
	for _, s := range importer.PopularSources() {
		fmt.Printf("  %s\n", s.Name)
		fmt.Printf("         %s\n", s.URL)
		fmt.Printf("         %s\n\n", s.Description)
	}

	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}

	s := a.engine.Stats()
	fmt.Printf("Enabled:          %t\n", a.engine.Enabled())
	fmt.Printf("Exact hosts:      %d\n", s.ExactHosts)
	fmt.Printf("Wildcards:        %d\n", s.Wildcards)
	fmt.Printf("Imported hosts:   %d\n", s.ImportedHosts)
	fmt.Printf("Enabled sources:  %d\n", s.EnabledSources)
	fmt.Printf("Compiled patterns: %d\n", s.CachedPatterns)
	fmt.Printf("Total rules:      %d\n", a.engine.RuleCount())

	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}

	a.engine.ClearHostsFileRules()
	if err = a.importer.Save(ctx); err != nil {
		return err
	}

	fmt.Println("Cleared imported hosts and sources")
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := "./configs/webview_adblock.toml"
	if cfgFile != "" {
		configPath = cfgFile
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return err
	}

	fmt.Printf("Created config file: %s\n", configPath)
	return nil
}

const defaultConfig = `# Web view ad-blocking engine configuration

# HTTP client settings for hosts subscriptions
[http]
connect_timeout = "15s"
read_timeout = "30s"
user_agent = "webview-adblock/1.0"
max_size = "64MB"
parallel = 4

# Engine settings
[engine]
enabled = true
use_defaults = true
# Custom rules: ||host^, plain host, or a wildcard pattern with *
custom_rules = []

# Where imported hosts and enabled sources are persisted
[storage]
dir = "./data"

# Hosts subscriptions imported by "webview-adblock import"
# Set enabled = false to skip a source

[[sources]]
name = "stevenblack"
url = "https://raw.githubusercontent.com/StevenBlack/hosts/master/hosts"
enabled = true

[[sources]]
name = "adaway"
url = "https://adaway.org/hosts.txt"
enabled = true

[[sources]]
name = "peter-lowe"
url = "https://pgl.yoyo.org/adservers/serverlist.php?hostformat=hosts&showintro=0&mimetype=plaintext"
enabled = false
`

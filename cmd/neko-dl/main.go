package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/handiism/neko-downloader/internal/config"
	"github.com/handiism/neko-downloader/internal/download"
	"github.com/handiism/neko-downloader/internal/source"
)

// proxyList collects -proxy values, each possibly comma-separated.
type proxyList []string

func (p *proxyList) String() string { return strings.Join(*p, ",") }

func (p *proxyList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*p = append(*p, part)
		}
	}
	return nil
}

func main() {
	// Command line flags
	var (
		urlFlag      = flag.String("url", "", "Series URL to download")
		outputFlag   = flag.String("output", "", "Output directory (overrides config)")
		profileFlag  = flag.String("profile", "", "Site profile: nettruyen, truyenqq, mangadex, hako or one from -profiles")
		profilesFlag = flag.String("profiles", "", "Path to a YAML file with extra site profiles")
		configFlag   = flag.String("config", "", "Path to config file (.json or .toml)")
		verboseFlag  = flag.Bool("verbose", false, "Show verbose output")
		dryRunFlag   = flag.Bool("dry-run", false, "List units without downloading")
		proxies      proxyList
	)
	flag.Var(&proxies, "proxy", "Proxy URL, repeatable or comma-separated")

	flag.Parse()

	// CLI mode - require URL
	if *urlFlag == "" && flag.NArg() == 0 {
		fmt.Println("Neko Downloader - Download manga and light novels")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  neko-dl -url <URL> [options]")
		fmt.Println("  neko-dl <URL> [options]")
		fmt.Println()
		fmt.Println("For interactive mode, use: neko-tui")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Apply flags
	if *outputFlag != "" {
		settings.OutputDir = *outputFlag
	}
	if *profileFlag != "" {
		settings.Profile = *profileFlag
	}
	if *profilesFlag != "" {
		settings.ProfilesFile = *profilesFlag
	}
	if len(proxies) > 0 {
		settings.Proxies = proxies
	}
	if *verboseFlag {
		settings.LogLevel = "debug"
	}

	root := *urlFlag
	if root == "" {
		root = flag.Arg(0)
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, finishing current requests...")
		cancel()
	}()

	manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !*verboseFlag {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "❌ "
		case download.LevelWarning:
			prefix = "⚠️  "
		case download.LevelSuccess:
			prefix = "✅ "
		case download.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Println(prefix + event.Message)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	fmt.Println("🐱 Neko Downloader")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	if *dryRunFlag {
		series, err := manager.ListUnits(ctx, root)
		if err != nil && !(errors.Is(err, source.ErrNoUnits) && series != nil) {
			fmt.Fprintf(os.Stderr, "Error listing units: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s (%d units)\n", series.Title, len(series.Units))
		for _, unit := range series.Units {
			fmt.Printf("  %s  %s\n", unit.Name, unit.URL)
		}
		fmt.Println("\n[Dry run - not downloading]")
		return
	}

	summary, err := manager.Run(ctx, root)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nDownload cancelled. Completed units are saved; run again to resume.")
			manager.Close()
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error during download: %v\n", err)
		manager.Close()
		os.Exit(1)
	}

	_, _, files := manager.GetProgress()
	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("✨ Complete! %d/%d units done, %d files downloaded\n",
		summary.Completed+summary.Skipped, summary.Units, files)
	if summary.Incomplete > 0 || summary.Failed > 0 {
		fmt.Printf("   %d incomplete, %d failed (run again to retry)\n", summary.Incomplete, summary.Failed)
	}
}

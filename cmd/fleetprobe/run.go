package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/user/fleetprobe/internal/aggregate"
	"github.com/user/fleetprobe/internal/model"
	"github.com/user/fleetprobe/internal/orchestrator"
	"github.com/user/fleetprobe/internal/resolver"
	"github.com/user/fleetprobe/internal/sink"
	"github.com/user/fleetprobe/internal/tui"
	"github.com/user/fleetprobe/internal/util"
)

var (
	runTargets    []string
	runTargetFile string
	runInterface  string
	runPorts      []int
	runCount      int
	runFormat     string
	runOutput     string
	runSQLite     string
	runConc       int
	runUI         bool

	runNoARP  bool
	runNoDNS  bool
	runNoTLS  bool
	runNoLink bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Probe a set of targets and report the results",
	Long: `Run the full probe battery against every target and emit one report.
Targets come from --targets, --file, or both; duplicates are removed while
preserving first-seen order.`,
	RunE: runProbes,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runTargets, "targets", "t", nil,
		"Target hosts or IPs (comma separated, repeatable)")
	runCmd.Flags().StringVarP(&runTargetFile, "file", "f", "",
		"File with one target per line ('#' comments allowed)")
	runCmd.Flags().StringVarP(&runInterface, "interface", "i", "",
		"Network interface for ICMP and link probes (default: default route)")
	runCmd.Flags().IntSliceVarP(&runPorts, "ports", "p", nil,
		"TCP ports to probe (default from config)")
	runCmd.Flags().IntVarP(&runCount, "count", "c", 0,
		"ICMP echo count (default from config)")
	runCmd.Flags().StringVar(&runFormat, "format", "",
		"Report format: text, json, yaml (default from config)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "",
		"Write the report to a file instead of stdout")
	runCmd.Flags().StringVar(&runSQLite, "sqlite", "",
		"Also record the run in this SQLite database")
	runCmd.Flags().IntVar(&runConc, "concurrency", 0,
		"Probe worker count (default from config)")
	runCmd.Flags().BoolVar(&runUI, "ui", false,
		"Show a live view while probing")

	runCmd.Flags().BoolVar(&runNoARP, "no-arp", false, "Skip the ARP probe")
	runCmd.Flags().BoolVar(&runNoDNS, "no-dns", false, "Skip the DNS probe")
	runCmd.Flags().BoolVar(&runNoTLS, "no-tls", false, "Skip the TLS probe")
	runCmd.Flags().BoolVar(&runNoLink, "no-link", false, "Skip the link quality probe")
}

func runProbes(cmd *cobra.Command, args []string) error {
	applyFlagOverrides(cmd)

	targets, err := resolver.Resolve(runTargets, runTargetFile, resolver.Options{
		Ports:     cfg.TCPPorts,
		Interface: cfg.Interface,
	})
	if err != nil {
		return errors.Wrap(err, "failed to resolve targets")
	}
	specs := buildSpecs(cfg)

	// Ctrl+C cancels the run; completed outcomes are kept and reported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	util.Info("starting run: %d targets, %d probe kinds", len(targets), len(specs))
	started := time.Now()

	var outcomes []model.Outcome
	if runUI {
		outcomes, err = runWithUI(ctx, targets, specs)
		if err != nil {
			return err
		}
	} else {
		orch := orchestrator.New(orchestrator.WithConcurrency(cfg.Concurrency))
		outcomes = orch.Run(ctx, targets, specs)
	}

	meta := aggregate.NewRunMeta(started, hostName(), kernelVersion())
	report := aggregate.Aggregate(meta, targets, specs, outcomes)
	util.Info("run %s finished: %d ok, %d failed, %d timed out, %d unsupported",
		meta.RunID, report.Summary.Succeeded, report.Summary.Failed,
		report.Summary.TimedOut, report.Summary.Unsupported)

	return writeReport(&report)
}

// applyFlagOverrides layers explicit flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command) {
	if cmd.Flags().Changed("interface") {
		cfg.Interface = runInterface
	}
	if cmd.Flags().Changed("ports") {
		cfg.TCPPorts = runPorts
	}
	if cmd.Flags().Changed("count") {
		cfg.ICMPCount = runCount
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = runFormat
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputPath = runOutput
	}
	if cmd.Flags().Changed("sqlite") {
		cfg.SQLitePath = runSQLite
	}
	if cmd.Flags().Changed("concurrency") && runConc > 0 {
		cfg.Concurrency = runConc
	}
	if runNoARP {
		cfg.ARPEnabled = false
	}
	if runNoDNS {
		cfg.DNSEnabled = false
	}
	if runNoTLS {
		cfg.TLSEnabled = false
	}
	if runNoLink {
		cfg.LinkEnabled = false
	}
}

// buildSpecs translates config into the probe battery for this run. ICMP and
// TCP always run; the rest are individually switchable.
func buildSpecs(cfg *util.Config) []model.ProbeSpec {
	specs := []model.ProbeSpec{
		{Kind: model.KindICMP, Count: cfg.ICMPCount, Timeout: cfg.ICMPTimeout},
	}
	if cfg.ARPEnabled {
		specs = append(specs, model.ProbeSpec{Kind: model.KindARP, Timeout: cfg.ARPTimeout})
	}
	specs = append(specs, model.ProbeSpec{
		Kind: model.KindTCP, Ports: cfg.TCPPorts, Timeout: cfg.TCPTimeout,
	})
	if cfg.DNSEnabled {
		specs = append(specs, model.ProbeSpec{Kind: model.KindDNS, Timeout: cfg.DNSTimeout})
	}
	if cfg.TLSEnabled {
		specs = append(specs, model.ProbeSpec{
			Kind: model.KindTLS, Port: cfg.TLSPort,
			ServerName: cfg.TLSServerName, Timeout: cfg.TLSTimeout,
		})
	}
	if cfg.LinkEnabled {
		specs = append(specs, model.ProbeSpec{Kind: model.KindLink, Timeout: cfg.LinkTimeout})
	}
	return specs
}

// runWithUI streams outcomes into the live view. Quitting the view cancels
// the run; whatever completed by then still lands in the report.
func runWithUI(ctx context.Context, targets []model.Target, specs []model.ProbeSpec) ([]model.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.NewRunModel(len(targets) * len(specs)))

	outcomesCh := make(chan []model.Outcome, 1)
	go func() {
		orch := orchestrator.New(
			orchestrator.WithConcurrency(cfg.Concurrency),
			orchestrator.WithOutcomeCallback(func(out model.Outcome) {
				p.Send(tui.OutcomeMsg(out))
			}),
		)
		outs := orch.Run(ctx, targets, specs)
		outcomesCh <- outs
		p.Send(tui.DoneMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, errors.Wrap(err, "live view failed")
	}
	if m, ok := final.(tui.RunModel); ok && m.Cancelled() {
		util.Warn("run cancelled from live view")
		cancel()
	}
	return <-outcomesCh, nil
}

// writeReport sends the report to the configured sinks: the formatted sink
// (stdout or --output) always, SQLite additionally when configured.
func writeReport(report *model.Report) error {
	out := os.Stdout
	if cfg.OutputPath != "" {
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return errors.Wrap(err, "failed to create output file")
		}
		defer f.Close()
		out = f
	}

	s, err := sink.ForFormat(cfg.Format, out)
	if err != nil {
		return err
	}
	if err := s.Write(report); err != nil {
		return errors.Wrap(err, "failed to write report")
	}

	if cfg.SQLitePath != "" {
		db, err := sink.OpenSQLiteSink(cfg.SQLitePath)
		if err != nil {
			return errors.Wrap(err, "failed to open sqlite sink")
		}
		defer db.Close()
		if err := db.Write(report); err != nil {
			return errors.Wrap(err, "failed to record run in sqlite")
		}
		fmt.Fprintf(os.Stderr, "Run %s recorded in %s\n", report.Meta.RunID, cfg.SQLitePath)
	}
	return nil
}

func hostName() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

func kernelVersion() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}

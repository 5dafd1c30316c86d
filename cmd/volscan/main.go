package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/sadopc/volscan/internal/ops"
	"github.com/sadopc/volscan/internal/remote"
	"github.com/sadopc/volscan/internal/scanner"
	"github.com/sadopc/volscan/internal/session"
	"github.com/sadopc/volscan/internal/ui"
	"github.com/sadopc/volscan/internal/util"
	"github.com/sadopc/volscan/internal/volume"
)

var version = "dev"

const defaultSSHPort = 22

// systemLister is replaced in tests.
var systemLister volume.Lister = volume.SystemLister{}

type config struct {
	list           bool
	volumeRoot     string
	exportPath     string
	headless       bool
	logLevel       string
	logFile        string
	sshPort        int
	sshBatch       bool
	sshTimeout     int
	sshScanTimeout int
	showVersion    bool
	args           []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the whole program; it returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.showVersion {
		fmt.Fprintf(stdout, "volscan %s\n", version)
		return 0
	}

	// Export needs a finished tree, so it always runs headless.
	if cfg.exportPath != "" {
		cfg.headless = true
	}

	logger, closeLog, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, cfg, logger, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := pflag.NewFlagSet("volscan", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVarP(&cfg.list, "list", "l", false, "List ready volumes with their free space and exit")
	fs.StringVar(&cfg.volumeRoot, "volume", "", "Select the volume mounted at this root")
	fs.StringVarP(&cfg.exportPath, "export", "e", "", "Scan headless and export ncdu JSON to this file ('-' for stdout)")
	fs.BoolVar(&cfg.headless, "no-tui", false, "Scan without the terminal UI, printing progress to stderr")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log verbosity (debug, info, warn, error)")
	fs.StringVar(&cfg.logFile, "log-file", "", "Write logs to this file (the TUI discards logs otherwise)")
	fs.IntVar(&cfg.sshPort, "ssh-port", defaultSSHPort, "SSH port for remote scans")
	fs.BoolVar(&cfg.sshBatch, "ssh-batch", false, "Disable SSH prompts (key/agent auth and known hosts only)")
	fs.IntVar(&cfg.sshTimeout, "ssh-timeout", 15, "SSH connection timeout in seconds")
	fs.IntVar(&cfg.sshScanTimeout, "ssh-scan-timeout", 0, "SSH scan timeout in seconds (0 = no limit)")
	fs.BoolVarP(&cfg.showVersion, "version", "v", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "volscan - volume scanner\n\n")
		fmt.Fprintf(stderr, "Usage: volscan [options] [path | user@host [remote-path]]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  volscan                          Browse and scan the mounted volumes\n")
		fmt.Fprintf(stderr, "  volscan --list                   Show ready volumes and free space\n")
		fmt.Fprintf(stderr, "  volscan --volume /home           Start on the /home volume\n")
		fmt.Fprintf(stderr, "  volscan ~/src                    Scan one directory\n")
		fmt.Fprintf(stderr, "  volscan --export scan.json /     Scan / headless and export it\n")
		fmt.Fprintf(stderr, "  volscan alice@host /var/log      Scan a remote directory over SFTP\n")
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.args = fs.Args()

	if cfg.sshPort < 1 || cfg.sshPort > 65535 {
		return cfg, fmt.Errorf("ssh-port must be between 1 and 65535")
	}
	if cfg.sshTimeout < 0 || cfg.sshScanTimeout < 0 {
		return cfg, fmt.Errorf("ssh timeouts must be >= 0")
	}
	if _, err := parseLevel(cfg.logLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// newLogger writes text logs to --log-file, else to stderr in headless
// modes. The TUI owns the terminal, so without a log file its logs are
// discarded.
func newLogger(cfg config, stderr io.Writer) (*slog.Logger, func(), error) {
	level, _ := parseLevel(cfg.logLevel)
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}

	switch {
	case cfg.logFile != "":
		f, err := os.OpenFile(cfg.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return slog.New(slog.NewTextHandler(f, opts)), func() { _ = f.Close() }, nil
	case cfg.headless || cfg.list:
		return slog.New(slog.NewTextHandler(stderr, opts)), func() {}, nil
	default:
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
}

func execute(ctx context.Context, cfg config, logger *slog.Logger, stdout, stderr io.Writer) error {
	target, err := resolveScanTarget(cfg.args)
	if err != nil {
		return err
	}

	opts := []session.Option{session.WithLogger(logger)}
	var lister volume.Lister

	switch target.Kind {
	case targetVolumes:
		lister = systemLister

	case targetLocal:
		abs, err := filepath.Abs(target.LocalPath)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", abs)
		}
		lister = volume.ListerFunc(func() ([]volume.Volume, error) {
			vols, err := systemLister.ListVolumes()
			if err != nil {
				logger.Warn("listing volumes failed; space figures unavailable", "error", err)
			}
			return []volume.Volume{volume.ForPath(vols, abs)}, nil
		})

	case targetRemote:
		rcfg := remote.Config{
			Target:    target.SSHDestination,
			Port:      cfg.sshPort,
			BatchMode: cfg.sshBatch,
			Timeout:   time.Duration(cfg.sshTimeout) * time.Second,
		}
		if cfg.sshScanTimeout > 0 {
			rcfg.ScanTimeout = time.Duration(cfg.sshScanTimeout) * time.Second
		}
		client, err := remote.Dial(ctx, rcfg)
		if err != nil {
			return err
		}
		defer client.Close()

		var cancel context.CancelFunc
		ctx, cancel = rcfg.ScanContext(ctx)
		defer cancel()

		lister = client.Lister(target.RemotePath)
		opts = append(opts, session.WithSourceFactory(func(volume.Volume) (scanner.Source, error) {
			return client.Source(), nil
		}))
	}

	m, err := session.NewManager(lister, opts...)
	if err != nil {
		return err
	}
	if cfg.volumeRoot != "" {
		if err := m.Select(cfg.volumeRoot); err != nil {
			return err
		}
	}

	switch {
	case cfg.list:
		return listVolumes(m, stdout)
	case cfg.headless:
		return scanHeadless(ctx, m, logger, cfg.exportPath, stdout, stderr)
	default:
		return runTUI(ctx, m, target.Kind != targetVolumes)
	}
}

func listVolumes(m *session.Manager, stdout io.Writer) error {
	cell := lipgloss.NewStyle().PaddingRight(2)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		StyleFunc(func(int, int) lipgloss.Style { return cell }).
		Headers("ROOT", "LABEL", "TYPE", "FREE")
	for _, s := range m.Volumes() {
		v := s.Volume()
		t.Row(v.RootPath, v.Label, v.FSType, session.FreeSpaceText(v))
	}
	_, err := fmt.Fprintln(stdout, t.String())
	return err
}

// progressPrinter rewrites one stderr status line per event.
type progressPrinter struct {
	mu  sync.Mutex
	w   io.Writer
	out bool
}

func (p *progressPrinter) OnEvent(ev session.Event) {
	if !ev.State.Busy {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	st := ev.State
	fmt.Fprintf(p.w, "\rScanning %s: %s files, %s dirs, %s unreadable, %.1f%% [%s]",
		ev.Volume.RootPath, humanize.Comma(st.Files), humanize.Comma(st.Directories),
		humanize.Comma(st.Errors), st.Progress, st.ElapsedText)
	p.out = true
}

func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out {
		fmt.Fprintln(p.w)
	}
}

func scanHeadless(ctx context.Context, m *session.Manager, logger *slog.Logger, exportPath string, stdout, stderr io.Writer) error {
	s := m.Selected()
	if s == nil {
		return session.ErrNoSelection
	}

	printer := &progressPrinter{w: stderr}
	unsubscribe := m.Subscribe(printer)
	defer unsubscribe()

	if err := s.Scan(ctx); err != nil {
		return err
	}
	printer.finish()

	if err := s.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", s.Volume().RootPath, err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("scan %s interrupted", s.Volume().RootPath)
	}

	p := s.Progress()
	logger.Info("headless scan complete", "started", p.StartTime.Format(time.RFC3339), "duration", p.Duration)
	fmt.Fprintf(stderr, "Scanned %s: %s files, %s dirs, %s unreadable in %s\n",
		s.Volume().RootPath, humanize.Comma(p.FilesScanned), humanize.Comma(p.DirsScanned),
		humanize.Comma(p.Errors), util.FormatDuration(p.Duration))

	switch exportPath {
	case "":
		return nil
	case "-":
		return ops.Export(stdout, s.Root(), version)
	}
	if err := ops.ExportFile(s.Root(), exportPath, version); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(stdout, "Exported to %s\n", exportPath)
	return nil
}

func runTUI(ctx context.Context, m *session.Manager, autoStart bool) error {
	app := ui.NewApp(ctx, m)
	defer app.Close()
	app.Version = version
	app.ExportPath = ui.DefaultExportPath
	app.AutoStart = autoStart

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	m.StopAll()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sloppy/foxport/internal/config"
	"github.com/sloppy/foxport/internal/discovery"
	"github.com/sloppy/foxport/internal/export"
	"github.com/sloppy/foxport/internal/importer"
	"github.com/sloppy/foxport/internal/lockfile"
	"github.com/sloppy/foxport/internal/repository"
	"github.com/sloppy/foxport/internal/vault"
	"github.com/sloppy/foxport/internal/web"
)

// newScanner is replaced in tests to keep the host's own profiles out.
var newScanner = discovery.NewScanner

func usage() string {
	return "Usage: foxport <scan|validate|import|history|export|serve> [--config file]"
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(out, usage())
		return 1
	}

	command := strings.ToLower(args[1])
	switch command {
	case "scan":
		return runScan(args[2:], out, errOut)
	case "validate":
		return runValidate(args[2:], out, errOut)
	case "import":
		return runImport(args[2:], out, errOut)
	case "history":
		return runHistory(args[2:], out, errOut)
	case "export":
		return runExport(args[2:], out, errOut)
	case "serve":
		return runServe(args[2:], out, errOut)
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage())
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n", command)
		fmt.Fprintln(out, usage())
		return 1
	}
}

func loadConfig(args []string) (config.Config, []string, error) {
	path, remaining, err := extractFlag(args, "config", "")
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, remaining, nil
}

func runScan(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}

	installs := newScanner(cfg.SearchRoots...).Scan()
	if len(installs) == 0 {
		fmt.Fprintln(out, "no Firefox installations found")
		return 0
	}
	for _, inst := range installs {
		fmt.Fprintf(out, "Firefox %s at %s\n", inst.Version, inst.Root)
		for _, p := range inst.Profiles {
			v := discovery.Validate(p.Path)
			md := discovery.ReadMetadata(p.Path)
			name := p.Name
			if p.IsDefault {
				name += " (default)"
			}
			fmt.Fprintf(out, "  %s\t%s\t%s\t%s\t%s\n", p.ID, name, describeGroups(v), humanize.Bytes(uint64(md.Size)), p.Path)
		}
	}
	return 0
}

func runValidate(args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "validate requires a profile directory")
		return 1
	}
	dir := args[0]
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	v := discovery.Validate(dir)
	md := discovery.ReadMetadata(dir)
	fmt.Fprintf(out, "profile: %s\n", dir)
	fmt.Fprintf(out, "importable: %s\n", describeGroups(v))
	fmt.Fprintf(out, "size: %s\n", humanize.Bytes(uint64(md.Size)))
	if !md.LastModified.IsZero() {
		fmt.Fprintf(out, "modified: %s\n", humanize.Time(md.LastModified))
	}
	for _, msg := range v.Errors {
		fmt.Fprintf(out, "missing: %s\n", msg)
	}
	if !v.IsValid {
		fmt.Fprintln(errOut, "profile has no importable data")
		return 1
	}
	return 0
}

func runImport(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	profileID, remaining, err := extractFlag(remaining, "profile", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	dest, remaining, err := extractFlag(remaining, "dest", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	all, remaining := extractBoolFlag(remaining, "all")
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}
	if all == (profileID != "") {
		fmt.Fprintln(errOut, "import requires exactly one of --profile or --all")
		return 1
	}
	if all && dest != "" {
		fmt.Fprintln(errOut, "--dest cannot be combined with --all")
		return 1
	}

	var profiles []discovery.Profile
	for _, inst := range newScanner(cfg.SearchRoots...).Scan() {
		for _, p := range inst.Profiles {
			if all || p.ID == profileID {
				profiles = append(profiles, p)
			}
		}
	}
	if len(profiles) == 0 {
		if all {
			fmt.Fprintln(out, "no profiles to import")
			return 0
		}
		fmt.Fprintf(errOut, "profile %q not found; run foxport scan to list profiles\n", profileID)
		return 1
	}

	key, err := cfg.VaultKey(os.Getenv, vault.Keychain{})
	if err != nil {
		fmt.Fprintf(errOut, "vault key: %v\n", err)
		return 1
	}
	logger := log.New(errOut, "", log.LstdFlags)
	v := vault.New(key)
	v.Logger = logger
	orch := importer.New(v)
	orch.MaxHistory = cfg.History.MaxEntries
	orch.Logger = logger

	destNames := destinationNames(profiles, dest)
	var locks []*lockfile.Lock
	defer func() {
		for _, l := range locks {
			l.Release()
		}
	}()
	sinkFor := func(p discovery.Profile) (importer.Sink, error) {
		paths, err := config.EnsureProfileDirs(cfg.DestinationRoot, destNames[p.ID])
		if err != nil {
			return nil, err
		}
		repo := repository.New(paths)
		repo.ChunkSize = cfg.History.ChunkSize
		lock, err := repo.Lock()
		if err != nil {
			return nil, err
		}
		locks = append(locks, lock)
		return repo, nil
	}
	onProgress := func(p discovery.Profile, ev importer.Progress) {
		if ev.Err != nil {
			fmt.Fprintf(out, "%s [%s] failed: %s\n", p.Name, ev.Stage, ev.Message)
			return
		}
		fmt.Fprintf(out, "%s [%s] %3d%% %s\n", p.Name, ev.Stage, ev.Percent, ev.Message)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := orch.ImportAll(ctx, profiles, sinkFor, onProgress)
	for i, res := range results {
		p := profiles[i]
		fmt.Fprintf(out, "imported %s into %s: %d bookmarks, %d history entries, %d passwords\n",
			p.Name, destNames[p.ID], res.Stats.BookmarksCount, res.Stats.HistoryCount, res.Stats.PasswordsCount)
	}
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			fmt.Fprintln(errOut, "another import is writing to this destination")
		}
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	return 0
}

// destinationNames maps profile ids to destination names. A single import
// may name its destination; otherwise the profile name is used and clashes
// fall back to the scan id.
func destinationNames(profiles []discovery.Profile, dest string) map[string]string {
	names := make(map[string]string, len(profiles))
	if dest != "" && len(profiles) == 1 {
		names[profiles[0].ID] = config.SanitizeName(dest)
		return names
	}
	used := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		name := config.SanitizeName(p.Name)
		if used[name] {
			name = config.SanitizeName(p.ID)
		}
		used[name] = true
		names[p.ID] = name
	}
	return names
}

func runHistory(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	dest, remaining, err := extractFlag(remaining, "dest", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	limitRaw, remaining, err := extractFlag(remaining, "limit", "20")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if dest == "" {
		fmt.Fprintln(errOut, "history requires --dest")
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}
	limit, err := strconv.Atoi(limitRaw)
	if err != nil || limit < 0 {
		fmt.Fprintf(errOut, "invalid --limit %q\n", limitRaw)
		return 1
	}

	repo := repository.New(config.GetProfilePaths(cfg.DestinationRoot, dest))
	entries, err := repo.History().Read(limit)
	if err != nil {
		fmt.Fprintf(errOut, "read history: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", e.LastVisitTime.Local().Format(time.DateTime), e.VisitCount, e.URL, e.Title)
	}
	return 0
}

func runExport(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	dest, remaining, err := extractFlag(remaining, "dest", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	format, remaining, err := extractFlag(remaining, "format", "json")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	data, remaining, err := extractFlag(remaining, "data", "bookmarks")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	outputPath, remaining, err := extractFlag(remaining, "o", "")
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if outputPath == "" {
		outputPath, remaining, err = extractFlag(remaining, "output", "")
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
	}
	if dest == "" {
		fmt.Fprintln(errOut, "export requires --dest")
		return 1
	}
	if outputPath == "" {
		fmt.Fprintln(errOut, "export requires --output or -o")
		return 1
	}
	if len(remaining) > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %s\n", strings.Join(remaining, " "))
		return 1
	}
	write, err := export.Writer(format, data)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	repo := repository.New(config.GetProfilePaths(cfg.DestinationRoot, dest))
	if _, err := repo.ReadMetadata(); err != nil {
		fmt.Fprintf(errOut, "import %q not found; run foxport import first\n", dest)
		return 1
	}

	file, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(errOut, "create output: %v\n", err)
		return 1
	}
	defer file.Close()

	if err := write(repo, file); err != nil {
		fmt.Fprintf(errOut, "export %s: %v\n", strings.ToLower(format), err)
		return 1
	}
	fmt.Fprintf(out, "exported %s (%s)\n", outputPath, strings.ToLower(format))
	return 0
}

func runServe(args []string, out, errOut io.Writer) int {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	port := fs.Int("port", 8080, "port to listen on")
	if err := fs.Parse(remaining); err != nil {
		return 1
	}

	server := web.NewServer(newScanner(cfg.SearchRoots...), cfg.DestinationRoot)
	addr := fmt.Sprintf(":%d", *port)
	fmt.Fprintf(out, "listening on http://localhost:%d\n", *port)
	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		fmt.Fprintf(errOut, "serve: %v\n", err)
		return 1
	}
	return 0
}

func describeGroups(v discovery.Validation) string {
	var groups []string
	if v.HasPlaces {
		groups = append(groups, "bookmarks", "history")
	}
	if v.HasPasswords {
		groups = append(groups, "passwords")
	}
	if v.HasPreferences {
		groups = append(groups, "settings")
	}
	if len(groups) == 0 {
		return "none"
	}
	return strings.Join(groups, ",")
}

// extractFlag finds a string flag (e.g., --dest value) anywhere in args and returns its value and remaining args.
func extractFlag(args []string, name string, defaultVal string) (string, []string, error) {
	val := defaultVal
	var remaining []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--"+name || arg == "-"+name {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%s flag requires a value", arg)
			}
			val = args[i+1]
			i++
			continue
		}
		if v, ok := strings.CutPrefix(arg, "--"+name+"="); ok {
			val = v
			continue
		}
		remaining = append(remaining, arg)
	}
	return val, remaining, nil
}

// extractBoolFlag removes a boolean flag such as --all from args.
func extractBoolFlag(args []string, name string) (bool, []string) {
	found := false
	var remaining []string
	for _, arg := range args {
		if arg == "--"+name || arg == "-"+name {
			found = true
			continue
		}
		remaining = append(remaining, arg)
	}
	return found, remaining
}

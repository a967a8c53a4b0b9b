// Package wrapper implements the codex pass-through: pick an account
// (explicit or by quota), point the environment at its sandbox, run codex,
// and recover once from an expired login.
package wrapper

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zpdzap/swop/internal/authroute"
	"github.com/zpdzap/swop/internal/autopick"
	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/fsutil"
	"github.com/zpdzap/swop/internal/runner"
	"github.com/zpdzap/swop/internal/sandbox"
	"github.com/zpdzap/swop/internal/usage"
)

// maxStaleAgeSeconds bounds how old cached usage may be before an account is
// excluded from auto-selection entirely.
const maxStaleAgeSeconds = 86400

// Invocation is a parsed `swop codex` command line.
type Invocation struct {
	Account   string // explicit label; empty means auto-select
	CodexArgs []string
}

// ParseArgs splits a `swop codex` argument list into selection flags and the
// arguments forwarded verbatim to codex. Only --account and --auto are
// allowed before the -- delimiter; anything else there is an error, and
// everything after it passes through.
func ParseArgs(args []string) (Invocation, error) {
	var inv Invocation
	auto := false
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "--":
			inv.CodexArgs = append(inv.CodexArgs, args[i+1:]...)
			i = len(args)
		case arg == "--auto":
			auto = true
			i++
		case arg == "--account":
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "-") {
				return Invocation{}, fmt.Errorf("--account requires a label")
			}
			inv.Account = args[i+1]
			i += 2
		case strings.HasPrefix(arg, "--account="):
			v := strings.TrimPrefix(arg, "--account=")
			if v == "" {
				return Invocation{}, fmt.Errorf("--account requires a label")
			}
			inv.Account = v
			i++
		case strings.HasPrefix(arg, "-"):
			return Invocation{}, fmt.Errorf("unknown flag before --: %s (use -- to forward flags to codex)", arg)
		default:
			return Invocation{}, fmt.Errorf("unexpected argument %q (use -- to pass arguments to codex)", arg)
		}
	}
	if auto && inv.Account != "" {
		return Invocation{}, fmt.Errorf("--account and --auto are mutually exclusive")
	}
	return inv, nil
}

// Deps are the wrapper's collaborators, injectable for tests.
type Deps struct {
	Cfg      config.Config
	List     func(config.Config) ([]sandbox.Meta, error)
	GetUsage func(labelText string, forceRefresh bool) (*usage.Result, error)
	Touch    func(config.Config, string, time.Time) error
	Route    func(config.Config, string) error
	Run      runner.Runner
	Now      func() time.Time
	Stdout   io.Writer
	Stderr   io.Writer

	// Interactive reports whether stdin and stdout are a terminal; the login
	// recovery prompt only appears when it is true.
	Interactive bool
	Prompt      func(labelText string) bool
}

// New wires the wrapper against the real filesystem, clock, and codex binary.
func New(cfg config.Config, interactive bool) *Deps {
	client := usage.NewClient(cfg)
	return &Deps{
		Cfg:         cfg,
		List:        sandbox.List,
		GetUsage:    client.Get,
		Touch:       sandbox.TouchLastUsedAt,
		Route:       authroute.Route,
		Run:         runner.Codex{},
		Now:         time.Now,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: interactive,
		Prompt:      promptRelogin,
	}
}

// Execute runs the full pipeline and returns codex's exit code.
func (d *Deps) Execute(args []string) (int, error) {
	inv, err := ParseArgs(args)
	if err != nil {
		return 1, err
	}

	labelText := inv.Account
	if labelText == "" {
		labelText, err = d.autoSelect()
	} else {
		err = d.checkExists(labelText)
	}
	if err != nil {
		return 1, err
	}

	paths, err := sandbox.Resolve(d.Cfg, labelText)
	if err != nil {
		return 1, err
	}

	fmt.Fprintf(d.Stdout, "Selected account: %s\n", labelText)

	// Recorded before the launch so a crashed codex still counts as use.
	if err := d.Touch(d.Cfg, labelText, d.Now()); err != nil {
		return 1, err
	}

	if d.Cfg.Isolation == config.IsolationRelaxed {
		if err := d.Route(d.Cfg, labelText); err != nil {
			return 1, err
		}
	}
	env := sandbox.ScopedEnv(d.Cfg, paths)

	run := d.Run.Run(inv.CodexArgs, runner.Options{Env: env, Interactive: true})
	if run.Err != nil {
		return run.Code, fmt.Errorf("running codex: %w", run.Err)
	}
	if run.Code == 0 {
		return 0, nil
	}

	// A failing codex might mean an expired login. A forced-fresh usage
	// probe disambiguates; only a definite auth failure triggers recovery.
	if !d.authExpired(labelText) {
		return run.Code, nil
	}
	if !d.Interactive || !d.Prompt(labelText) {
		fmt.Fprintf(d.Stderr, "swop: account %s needs a new login (swop relogin %s)\n", labelText, labelText)
		return run.Code, nil
	}

	login := d.Run.Run([]string{"login"}, runner.Options{
		Env:         sandbox.SandboxEnv(d.Cfg, paths),
		Interactive: true,
	})
	if login.Err != nil || login.Code != 0 {
		return run.Code, fmt.Errorf("codex login failed")
	}

	retry := d.Run.Run(inv.CodexArgs, runner.Options{Env: env, Interactive: true})
	if retry.Err != nil {
		return retry.Code, fmt.Errorf("running codex: %w", retry.Err)
	}
	return retry.Code, nil
}

func (d *Deps) checkExists(labelText string) error {
	paths, err := sandbox.Resolve(d.Cfg, labelText)
	if err != nil {
		return err
	}
	if !fsutil.Lstat(paths.Root).IsDir || !fsutil.Lstat(paths.MetaPath).IsFile {
		return fmt.Errorf("unknown account: %s (swop add %s)", labelText, labelText)
	}
	return nil
}

type probe struct {
	label  string
	result *usage.Result
	err    error
}

// autoSelect probes every account's usage concurrently and picks the best
// one. Fresh snapshots are preferred outright; stale snapshots up to a day
// old are a fallback tier that selects with a warning.
func (d *Deps) autoSelect() (string, error) {
	metas, err := d.List(d.Cfg)
	if err != nil {
		return "", err
	}
	if len(metas) == 0 {
		return "", fmt.Errorf("no accounts configured (swop add <label>)")
	}

	probes := make([]probe, len(metas))
	var wg sync.WaitGroup
	for i, m := range metas {
		wg.Add(1)
		go func(i int, label string) {
			defer wg.Done()
			res, err := d.GetUsage(label, false)
			probes[i] = probe{label: label, result: res, err: err}
		}(i, m.LabelKey)
	}
	wg.Wait()

	var fresh, stale []autopick.Candidate
	staleAge := map[string]int{}
	for _, p := range probes {
		if p.err != nil {
			fmt.Fprintf(d.Stderr, "Warning: usage unavailable for %s: %v\n", p.label, p.err)
			continue
		}
		c := autopick.Candidate{Label: p.label, Usage: p.result.Usage}
		if !p.result.Freshness.Stale {
			fresh = append(fresh, c)
		} else if p.result.Freshness.AgeSeconds <= maxStaleAgeSeconds {
			stale = append(stale, c)
			staleAge[p.label] = p.result.Freshness.AgeSeconds
		}
	}

	now := d.Now()
	if len(fresh) > 0 {
		sel, err := autopick.Select(fresh, now)
		if err == nil {
			return sel.Label, nil
		}
		var blocked *autopick.BlockedError
		if !errors.As(err, &blocked) {
			return "", err
		}
	}
	if len(stale) > 0 {
		sel, err := autopick.Select(stale, now)
		if err == nil {
			fmt.Fprintf(d.Stderr, "Warning: selecting %s from stale usage data (%ds old)\n",
				sel.Label, staleAge[sel.Label])
			return sel.Label, nil
		}
	}

	// Nothing selectable in either tier. Report one blocked error spanning
	// every candidate so the earliest reset wins.
	all := append(append([]autopick.Candidate{}, fresh...), stale...)
	if len(all) > 0 {
		_, err := autopick.Select(all, now)
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no usable usage data for any account (try swop usage --refresh)")
}

// authExpired force-refreshes the account's usage and reports whether the
// failure was definitely an authentication one.
func (d *Deps) authExpired(labelText string) bool {
	_, err := d.GetUsage(labelText, true)
	if err == nil {
		return false
	}
	var ue *usage.Error
	return errors.As(err, &ue) && ue.Kind == usage.KindAuth
}

func promptRelogin(labelText string) bool {
	fmt.Fprintf(os.Stderr, "Account %s appears logged out. Log in again now? [Y/n] ", labelText)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || answer == "y" || answer == "yes"
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zpdzap/swop/internal/account"
	"github.com/zpdzap/swop/internal/config"
	"github.com/zpdzap/swop/internal/runner"
	"github.com/zpdzap/swop/internal/status"
	"github.com/zpdzap/swop/internal/tui"
	"github.com/zpdzap/swop/internal/usage"
	"github.com/zpdzap/swop/internal/wrapper"
)

func main() {
	root := &cobra.Command{
		Use:   "swop",
		Short: "Swop — run codex across multiple isolated accounts",
		RunE:  runTUI,
	}

	root.AddCommand(addCmd())
	root.AddCommand(logoutCmd())
	root.AddCommand(reloginCmd())
	root.AddCommand(codexCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(usageCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <label>",
		Short: "Create an account sandbox and log in to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromOS()
			if err := account.Add(cfg, args[0], runner.Codex{}, isInteractive()); err != nil {
				return err
			}
			fmt.Printf("Added account %s\n", args[0])
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <label>",
		Short: "Log an account out and remove its sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromOS()
			warning, err := account.Logout(cfg, args[0], runner.Codex{})
			if warning != "" {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Removed account %s\n", args[0])
			return nil
		},
	}
}

func reloginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relogin <label>",
		Short: "Re-run codex login for an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromOS()
			return account.Relogin(cfg, args[0], runner.Codex{}, isInteractive())
		},
	}
}

func codexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codex [--account <label> | --auto] [--] [codex args...]",
		Short: "Run codex as the chosen or healthiest account",
		// Selection flags are parsed by the wrapper so everything after --
		// reaches codex untouched.
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromOS()
			w := wrapper.New(cfg, isInteractive())
			code, err := w.Execute(args)
			if err != nil {
				return err
			}
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show quota for every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := status.New(config.FromOS()).Render(refresh)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the usage cache")
	return cmd
}

func usageCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "usage <label>",
		Short: "Show one account's raw usage snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromOS()
			res, err := usage.NewClient(cfg).Get(args[0], refresh)
			if err != nil {
				return err
			}
			if res.Warning != nil {
				fmt.Fprintf(os.Stderr, "Warning: last refresh failed (%s)\n", res.Warning.Kind)
			}
			printSnapshot(res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the usage cache")
	return cmd
}

func printSnapshot(res *usage.Result) {
	fmt.Printf("plan: %s\n", res.Usage.PlanType)
	if rl := res.Usage.RateLimit; rl != nil {
		fmt.Printf("allowed: %v  limit_reached: %v\n", rl.Allowed, rl.LimitReached)
		fmt.Printf("primary:   %.1f%% used, resets %s\n", rl.PrimaryWindow.UsedPercent, rl.PrimaryWindow.ResetAt)
		fmt.Printf("secondary: %.1f%% used, resets %s\n", rl.SecondaryWindow.UsedPercent, rl.SecondaryWindow.ResetAt)
	} else {
		fmt.Println("no quota data")
	}
	fmt.Printf("fetched_at: %s  stale: %v  age: %ds\n",
		res.Freshness.FetchedAt, res.Freshness.Stale, res.Freshness.AgeSeconds)
}

func configCmd() *cobra.Command {
	var isolation string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persistent settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromOS()
			if isolation != "" {
				if isolation != string(config.IsolationStrict) && isolation != string(config.IsolationRelaxed) {
					return fmt.Errorf("invalid isolation mode %q (strict or relaxed)", isolation)
				}
				cfg.Isolation = config.IsolationMode(isolation)
				if err := config.Save(cfg); err != nil {
					return err
				}
			}
			fmt.Printf("accounts root: %s\n", cfg.AccountsRoot)
			fmt.Printf("isolation: %s\n", cfg.Isolation)
			return nil
		},
	}
	cmd.Flags().StringVar(&isolation, "isolation", "", "set the isolation mode (strict or relaxed)")
	return cmd
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isInteractive() {
		return fmt.Errorf("the dashboard needs an interactive terminal (try swop status)")
	}
	return tui.Run(config.FromOS())
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcdev12/rinklog/go/internal/session/rpc"
)

type settings struct {
	BaseURL string        `env:"RINKLOG_URL"     envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"RINKLOG_TIMEOUT" envDefault:"30s"`
}

const usage = `usage: sessionctl <command> [args]

  time                     current clock
  snapshot                 full session state
  claim <view>             claim a view or see who holds it
  release <view>           give a view back
  takeover <view>          ask the holder for a view
  approve <view>           hand a view to its pending requester
  cancel <view>            withdraw a pending request
  select <view>...         replace the selected views
  focus [view]             focus a selected view, no view clears focus
  clear                    release own views and clear the selection
  start | stop | lock      clock controls
  set-time <min> <sec>     set the clock
  period <n>               set the period
  game <id>                switch to another game
`

func main() {
	var cfg settings
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parse env: %v\n", err)
		os.Exit(1)
	}

	client := rpc.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg.BaseURL)
	if err := run(context.Background(), client, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "sessionctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *rpc.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	var (
		resp any
		err  error
	)
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "time":
		resp, err = client.GetCurrentTime(ctx)
	case "snapshot":
		resp, err = client.GetSnapshot(ctx)
	case "claim", "release", "takeover", "approve", "cancel":
		if len(rest) != 1 {
			return fmt.Errorf("%s needs exactly one view", cmd)
		}
		resp, err = viewCommand(ctx, client, cmd, rest[0])
	case "select":
		resp, err = client.SelectViews(ctx, rest...)
	case "focus":
		view := ""
		if len(rest) > 0 {
			view = rest[0]
		}
		resp, err = client.SetActiveView(ctx, view)
	case "clear":
		resp, err = client.ClearAll(ctx)
	case "start":
		resp, err = client.StartClock(ctx)
	case "stop":
		resp, err = client.StopClock(ctx)
	case "lock":
		resp, err = client.ToggleLock(ctx)
	case "set-time":
		nums, perr := ints(rest, 2)
		if perr != nil {
			return fmt.Errorf("set-time: %w", perr)
		}
		resp, err = client.SetTime(ctx, nums[0], nums[1])
	case "period":
		nums, perr := ints(rest, 1)
		if perr != nil {
			return fmt.Errorf("period: %w", perr)
		}
		resp, err = client.SetPeriod(ctx, nums[0])
	case "game":
		if len(rest) != 1 {
			return fmt.Errorf("game needs exactly one id")
		}
		resp, err = client.SwitchGame(ctx, rest[0])
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func viewCommand(ctx context.Context, client *rpc.Client, cmd, view string) (any, error) {
	switch cmd {
	case "claim":
		return client.ClaimOrCheck(ctx, &rpc.ClaimOrCheckRequest{View: view})
	case "release":
		return client.ReleaseView(ctx, view)
	case "takeover":
		return client.RequestTakeOver(ctx, &rpc.RequestTakeOverRequest{View: view})
	case "approve":
		return client.ApproveTakeOver(ctx, view)
	default:
		return client.CancelTakeOver(ctx, view)
	}
}

func ints(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(args))
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		out[i] = v
	}
	return out, nil
}

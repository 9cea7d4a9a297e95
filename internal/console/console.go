package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
)

// Controller is the part of the dispatcher the console drives.
// *dispatch.Dispatcher satisfies it.
type Controller interface {
	PushHardwareEvent(ev charger.Event)
	SetAvailability(available bool) error
	CurrentState() charger.State
	Session() dispatch.Session
}

// Config configures the console.
type Config struct {
	Prompt      string
	HistoryFile string
}

// Console is an interactive stand-in for the charger hardware: each command
// line becomes a hardware event or an availability change.
type Console struct {
	rl *readline.Instance
}

// New creates a console reading from the terminal.
func New(cfg Config) (*Console, error) {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = "charger> "
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{rl: rl}, nil
}

// Stdout returns a writer that does not corrupt the prompt. Route log and
// panel output through it while the console runs.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run drives ctrl from the commands read until quit, EOF, Ctrl+C or ctx
// cancellation. Leaving the console by command or Ctrl+C calls cancel.
func (c *Console) Run(ctx context.Context, ctrl Controller, cancel context.CancelFunc) {
	defer c.rl.Close()

	// Readline blocks; closing the instance unblocks it on shutdown.
	stop := context.AfterFunc(ctx, func() { c.rl.Close() })
	defer stop()

	out := c.rl.Stdout()
	printHelp(out)

	for {
		line, err := c.rl.Readline()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, readline.ErrInterrupt) && !errors.Is(err, io.EOF) {
				fmt.Fprintf(out, "console error: %v\n", err)
			}
			cancel()
			return
		}

		if quit := execute(ctrl, out, line); quit {
			cancel()
			return
		}
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("plugin"),
		readline.PcItem("plugout"),
		readline.PcItem("swipe"),
		readline.PcItem("state"),
		readline.PcItem("session"),
		readline.PcItem("off"),
		readline.PcItem("on"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// execute runs one command line and reports whether the console should exit.
func execute(ctrl Controller, out io.Writer, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "plugin", "plugout", "swipe":
		ev, err := charger.ParseEvent(cmd)
		if err != nil {
			fmt.Fprintln(out, err)
			return false
		}
		ctrl.PushHardwareEvent(ev)
		fmt.Fprintf(out, "queued %s\n", ev)

	case "state":
		fmt.Fprintln(out, ctrl.CurrentState().Title())

	case "session":
		printSession(out, ctrl.Session())

	case "off", "on":
		if err := ctrl.SetAvailability(cmd == "on"); err != nil {
			fmt.Fprintf(out, "cannot go %s: %v\n", cmd, err)
			return false
		}
		fmt.Fprintln(out, ctrl.CurrentState().Title())

	case "help", "?":
		printHelp(out)

	case "quit", "exit":
		return true

	default:
		fmt.Fprintf(out, "unknown command %q (try 'help')\n", fields[0])
	}
	return false
}

func printSession(out io.Writer, s dispatch.Session) {
	registration := s.Registration
	if registration == "" {
		registration = "(no response)"
	}
	fmt.Fprintf(out, "registration: %s\n", registration)
	fmt.Fprintf(out, "heartbeat:    %s\n", s.HeartbeatInterval)

	switch {
	case !s.TransactionActive:
		fmt.Fprintln(out, "transaction:  none")
	case s.HasTransactionID:
		fmt.Fprintf(out, "transaction:  %d (meter start %d Wh)\n", s.TransactionID, s.MeterStart)
	default:
		fmt.Fprintf(out, "transaction:  pending (meter start %d Wh)\n", s.MeterStart)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `Commands:
  plugin    connect the cable
  plugout   remove the cable
  swipe     present the card
  state     show the charger state
  session   show protocol session details
  off       take the charger out of service
  on        return the charger to service
  quit      exit
`)
}

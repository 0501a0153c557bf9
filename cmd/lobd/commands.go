package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/erain9/limitbook/pkg/core"
	"github.com/erain9/limitbook/pkg/logging"
	"github.com/erain9/limitbook/pkg/service"
	"github.com/fatih/color"
	"github.com/nikolaydubina/fpdecimal"
)

var errQuit = errors.New("quit")

// shell reads one command per line and applies it to the service
type shell struct {
	svc *service.OrderService
	out io.Writer
	seq int

	cyan  func(format string, a ...interface{}) string
	red   func(format string, a ...interface{}) string
	green func(format string, a ...interface{}) string
}

func newShell(svc *service.OrderService, out io.Writer) *shell {
	return &shell{
		svc:   svc,
		out:   out,
		cyan:  color.New(color.FgCyan).SprintfFunc(),
		red:   color.New(color.FgRed).SprintfFunc(),
		green: color.New(color.FgGreen).SprintfFunc(),
	}
}

// run executes commands from in until EOF, quit or ctx is done. Errors in a
// single command are printed and do not stop the loop.
func (s *shell) run(ctx context.Context, in io.Reader) error {
	ctx = logging.WithInstrument(ctx, s.svc.Instrument())
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.seq++
		cmdCtx := logging.WithRequestID(ctx, "cmd-"+strconv.Itoa(s.seq))
		err := s.exec(cmdCtx, strings.Fields(line))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			logger := logging.FromContext(cmdCtx)
			logger.Debug().Err(err).Str("command", line).Msg("command failed")
			fmt.Fprintln(s.out, s.red("error: %v", err))
		}
	}
	return scanner.Err()
}

func (s *shell) exec(ctx context.Context, args []string) error {
	switch strings.ToLower(args[0]) {
	case "add":
		side, price, qty, err := parseOrder(args[1:])
		if err != nil {
			return err
		}
		id, err := s.svc.Add(ctx, side, price, qty)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "added %s\n", id)

	case "submit":
		side, price, qty, err := parseOrder(args[1:])
		if err != nil {
			return err
		}
		result, err := s.svc.Submit(ctx, side, price, qty)
		if result != nil {
			s.printResult(result)
		}
		return err

	case "cancel":
		if len(args) != 2 {
			return errors.New("usage: cancel <id>")
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[1], err)
		}
		fmt.Fprintln(s.out, s.svc.Cancel(ctx, core.OrderID(id)))

	case "best":
		q := s.svc.BestBidAsk()
		fmt.Fprintf(s.out, "bid %s ask %s\n", formatPrice(q.BestBid), formatPrice(q.BestAsk))

	case "qty":
		if len(args) != 3 {
			return errors.New("usage: qty <bid|ask> <price>")
		}
		side, err := parseSide(args[1])
		if err != nil {
			return err
		}
		price, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", args[2], err)
		}
		qty, err := s.svc.TotalQuantity(side, core.Price(price))
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, qty)

	case "depth", "book":
		n := 0
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid depth %q: %w", args[1], err)
			}
			n = v
		}
		return s.printDepth(n)

	case "help":
		printUsage(s.out)

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func (s *shell) printResult(r *core.FillResult) {
	status := r.Status.String()
	if r.Status == core.Filled {
		status = s.green(status)
	}
	fmt.Fprintf(s.out, "%s filled %d remaining %d", status, r.FilledQuantity(), r.Remaining)
	if avg, err := r.AvgPrice(); err == nil {
		fmt.Fprintf(s.out, " avg %s", fpdecimal.FromFloat(avg))
	}
	if r.Rested {
		fmt.Fprintf(s.out, " resting %s", r.RestingID)
	}
	fmt.Fprintln(s.out)
	for _, f := range r.Fills {
		fmt.Fprintf(s.out, "  fill %d @ %d against %s\n", f.Quantity, f.Price, f.MakerID)
	}
}

func (s *shell) printDepth(n int) error {
	w := tabwriter.NewWriter(s.out, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", s.cyan("Price"), s.cyan("Quantity"), s.cyan("Orders"), s.cyan("Side"))

	asks := s.svc.Depth(core.Ask, n)
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t\n", asks[i].Price, asks[i].Quantity, asks[i].Orders, s.red("ASK"))
	}
	for _, l := range s.svc.Depth(core.Bid, n) {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t\n", l.Price, l.Quantity, l.Orders, s.green("BID"))
	}
	return w.Flush()
}

func parseOrder(args []string) (core.Side, core.Price, core.Quantity, error) {
	if len(args) != 3 {
		return 0, 0, 0, errors.New("usage: <bid|ask> <price> <quantity>")
	}
	side, err := parseSide(args[0])
	if err != nil {
		return 0, 0, 0, err
	}
	price, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid price %q: %w", args[1], err)
	}
	qty, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid quantity %q: %w", args[2], err)
	}
	return side, core.Price(price), core.Quantity(qty), nil
}

func parseSide(s string) (core.Side, error) {
	switch strings.ToLower(s) {
	case "bid", "buy":
		return core.Bid, nil
	case "ask", "sell":
		return core.Ask, nil
	default:
		return 0, fmt.Errorf("invalid side %q", s)
	}
}

func formatPrice(p core.Price) string {
	if p == core.NoPrice {
		return "-"
	}
	return strconv.FormatUint(uint64(p), 10)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  add <bid|ask> <price> <quantity>     rest an order without matching")
	fmt.Fprintln(w, "  submit <bid|ask> <price> <quantity>  match, then rest the remainder")
	fmt.Fprintln(w, "  cancel <id>")
	fmt.Fprintln(w, "  best")
	fmt.Fprintln(w, "  qty <bid|ask> <price>")
	fmt.Fprintln(w, "  depth [levels]")
	fmt.Fprintln(w, "  quit")
}

package parking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Shell is the terminal front end of the desk. Lines read while a capture
// is running are treated as capture keys.
type Shell struct {
	desk      *Desk
	in        io.Reader
	out       io.Writer
	notifier  *ConsoleNotifier
	telemetry *TelemetryProvider
	lines     chan string
}

func NewShell(desk *Desk, in io.Reader, out io.Writer, telemetry *TelemetryProvider) *Shell {
	return &Shell{
		desk:      desk,
		in:        in,
		out:       out,
		notifier:  NewConsoleNotifier(out),
		telemetry: telemetry,
		lines:     make(chan string),
	}
}

func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")
	go s.readLines()

	for {
		var input string
		select {
		case <-ctx.Done():
			span.AddEvent("shell_cancelled")
			return
		case line, ok := <-s.lines:
			if !ok {
				span.AddEvent("shell_ended")
				return
			}
			input = strings.TrimSpace(line)
		}

		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}
}

func (s *Shell) readLines() {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.parse_command")
	defer span.End()

	command, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "enter":
		s.handleEnter(ctx, args)
	case "exit":
		s.handleExit(ctx, args)
	case "capture":
		s.handleCapture(ctx)
	case "status":
		s.handleStatus(ctx)
	case "ticket":
		s.handleTicket(ctx)
	case "help":
		s.printHelp()
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		fmt.Fprintf(s.out, "Unknown command: %s\n", command)
	}
}

func (s *Shell) handleEnter(ctx context.Context, identifier string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.enter_command")
	defer span.End()

	receipt, err := s.desk.SubmitEntry(ctx, identifier, s.notifier)
	if err != nil {
		span.AddEvent("entry_failed")
		return
	}

	span.AddEvent("entry_successful", trace.WithAttributes(
		attribute.String("session.id", receipt.Session.ID),
	))
	s.printTicket(receipt.Ticket)
}

func (s *Shell) handleExit(ctx context.Context, identifier string) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.exit_command")
	defer span.End()

	if _, err := s.desk.SubmitExit(ctx, identifier, s.notifier); err != nil {
		span.AddEvent("exit_failed")
		return
	}
	span.AddEvent("exit_successful")
}

func (s *Shell) handleCapture(ctx context.Context) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.capture_command")
	defer span.End()

	keys := &lineKeySource{lines: s.lines}
	preview := &consolePreview{out: s.out, notifier: s.notifier}

	result, err := s.desk.CaptureIdentifier(ctx, keys, preview, preview)
	preview.endLine()
	if err != nil {
		span.AddEvent("capture_failed")
		return
	}

	span.AddEvent("capture_finished", trace.WithAttributes(
		attribute.String("capture.state", result.State.String()),
	))
	if result.Identifier != "" {
		fmt.Fprintf(s.out, "Entry field set to %s. Type 'enter' to record it.\n", result.Identifier)
	}
}

func (s *Shell) handleStatus(ctx context.Context) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.status_command")
	defer span.End()

	sessions := s.desk.Sessions()
	if len(sessions) == 0 {
		span.AddEvent("parking_lot_empty")
		fmt.Fprintln(s.out, "Parking lot is empty")
		return
	}

	span.SetAttributes(attribute.Int("open_sessions_count", len(sessions)))

	fmt.Fprintln(s.out, "Vehicle No.\tEntry Time")
	for _, session := range sessions {
		fmt.Fprintf(s.out, "%s\t%s\n", session.VehicleIdentifier, FormatTimestamp(session.EntryTime))
	}
}

func (s *Shell) handleTicket(ctx context.Context) {
	_, span := s.telemetry.Tracer().Start(ctx, "shell.ticket_command")
	defer span.End()

	form := s.desk.Snapshot()
	if form.Ticket == nil {
		fmt.Fprintln(s.out, "No ticket")
		return
	}
	s.printTicket(form.Ticket)
}

func (s *Shell) printTicket(ticket *Ticket) {
	if ticket == nil {
		return
	}
	fmt.Fprintln(s.out, ticket.Text)
	if ticket.HasBarcode() {
		fmt.Fprintf(s.out, "[barcode: %d bytes PNG, %dx%d]\n", len(ticket.Barcode), BarcodeWidth, BarcodeHeight)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  enter [vehicle_number]  record an entry (uses the captured number when omitted)")
	fmt.Fprintln(s.out, "  exit <vehicle_number>   record an exit and show the fee")
	fmt.Fprintln(s.out, "  capture                 read the vehicle number from the camera")
	fmt.Fprintln(s.out, "  status                  list vehicles inside the lot")
	fmt.Fprintln(s.out, "  ticket                  show the current ticket")
}

// lineKeySource turns shell input lines into capture keys.
type lineKeySource struct {
	lines <-chan string
}

func (k *lineKeySource) Poll(ctx context.Context, wait time.Duration) (Key, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case line, ok := <-k.lines:
		if !ok {
			return KeyCancel, true
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return 0, false
		}
		return Key([]rune(line)[0]), true
	case <-timer.C:
		return 0, false
	case <-ctx.Done():
		return 0, false
	}
}

// consolePreview redraws one status line per frame and ends that line
// before any notification is printed.
type consolePreview struct {
	out      io.Writer
	notifier Notifier
	frames   int
	open     bool
}

func (p *consolePreview) Show(frame Frame) {
	p.frames++
	p.open = true
	fmt.Fprintf(p.out, "\rPreview: frame %d (%d bytes)", p.frames, len(frame.Data))
}

func (p *consolePreview) Notify(severity Severity, title, message string) {
	p.endLine()
	p.notifier.Notify(severity, title, message)
}

func (p *consolePreview) endLine() {
	if p.open {
		fmt.Fprintln(p.out)
		p.open = false
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahmadzakiakmal/shiptrack/export"
	"github.com/ahmadzakiakmal/shiptrack/intake"
	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

const intakeHelp = `Commands:
  set FIELD VALUE      set a field (e.g. set senderName Alice)
  next                 validate this step and continue
  prev                 go back one step
  edit N               return to step N to change it
  show                 print the current step
  export png|pdf DIR   write the barcode (tracking summary only)
  submit               submit the shipment (tracking summary only)
  quit                 leave; the draft can be resumed with --resume
  discard              drop this session and its draft`

func newIntakeCommand(ctx *commandContext) *cobra.Command {
	var resume string

	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Collect a shipment with a step-by-step terminal wizard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			st, err := openStack(cfg, logger, false)
			if err != nil {
				return err
			}
			defer st.Close()

			svc, err := intake.NewService(st.submitter, st.drafts, cfg.Render, export.NewPipeline(), logger.With("module", "intake"))
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			return runIntakeSession(cmd.Context(), svc, resume, in, cmd.OutOrStdout(), isTerminal(in))
		},
	}

	cmd.Flags().StringVar(&resume, "resume", "", "Session id of a saved draft to continue")
	return cmd
}

type terminalSession struct {
	ctx context.Context
	svc *intake.Service
	id  string
	out io.Writer
}

// runIntakeSession reads commands line by line until the shipment is
// submitted, the operator quits or input ends
func runIntakeSession(ctx context.Context, svc *intake.Service, resume string, in io.Reader, out io.Writer, interactive bool) error {
	var view *intake.View
	var err error
	if resume != "" {
		view, err = svc.Get(resume)
	} else {
		view, err = svc.Start()
	}
	if err != nil {
		return err
	}

	ts := &terminalSession{ctx: ctx, svc: svc, id: view.SessionID, out: out}
	if interactive {
		fmt.Fprintln(out, intakeHelp)
	}
	fmt.Fprintf(out, "Session %s\n", view.SessionID)
	ts.print(view)

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ts.handle(line) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Draft kept as session %s\n", ts.id)
	return nil
}

// handle runs one command and reports whether the session is over
func (ts *terminalSession) handle(line string) bool {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "set":
		name, value, _ := strings.Cut(rest, " ")
		field, ok := resolveField(name)
		if !ok {
			ts.fail(fmt.Errorf("%w: %q", wizard.ErrUnknownField, name))
			return false
		}
		view, err := ts.svc.UpdateField(ts.id, field, strings.TrimSpace(value))
		if err != nil {
			ts.fail(err)
			return false
		}
		if owner, _ := wizard.StepOf(field); owner != view.Step {
			fmt.Fprintf(ts.out, "Saved %s (collected on step %d: %s)\n", field.Label(), int(owner), owner.Label())
		}
	case "next":
		ts.show(ts.svc.Advance(ts.id))
	case "prev":
		ts.show(ts.svc.Retreat(ts.id))
	case "edit":
		n, err := strconv.Atoi(rest)
		if err != nil {
			ts.fail(fmt.Errorf("edit needs a step number"))
			return false
		}
		ts.show(ts.svc.JumpToStep(ts.id, wizard.Step(n)))
	case "show":
		ts.show(ts.svc.Get(ts.id))
	case "export":
		ts.export(rest)
	case "submit":
		ack, view, err := ts.svc.Finalize(ts.ctx, ts.id)
		if err != nil {
			ts.fail(err)
			return false
		}
		ts.print(view)
		fmt.Fprintf(ts.out, "Submitted shipment %s\n", ack.TrackingIdentifier)
		return true
	case "discard":
		if err := ts.svc.Discard(ts.id); err != nil {
			ts.fail(err)
			return false
		}
		fmt.Fprintf(ts.out, "Discarded session %s\n", ts.id)
		return true
	case "quit", "exit":
		fmt.Fprintf(ts.out, "Draft kept as session %s\n", ts.id)
		return true
	case "help":
		fmt.Fprintln(ts.out, intakeHelp)
	default:
		fmt.Fprintf(ts.out, "! unknown command %q (try help)\n", verb)
	}
	return false
}

func (ts *terminalSession) export(args string) {
	kindArg, dir, _ := strings.Cut(args, " ")
	kind, err := export.ParseKind(kindArg)
	if err != nil {
		ts.fail(err)
		return
	}
	artifact, err := ts.svc.Export(ts.id, kind)
	if err != nil {
		ts.fail(err)
		return
	}
	path, err := writeArtifact(strings.TrimSpace(dir), artifact)
	if err != nil {
		ts.fail(err)
		return
	}
	fmt.Fprintf(ts.out, "Wrote %s (%d bytes)\n", path, len(artifact.Data))
}

func (ts *terminalSession) show(view *intake.View, err error) {
	if err != nil {
		ts.fail(err)
		return
	}
	ts.print(view)
}

func (ts *terminalSession) fail(err error) {
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(ts.out, "! %s\n", verr.Reason)
		return
	}
	if errors.Is(err, export.ErrRendererNotReady) {
		fmt.Fprintln(ts.out, "! the barcode is only available on the tracking summary")
		return
	}
	fmt.Fprintf(ts.out, "! %v\n", err)
}

func (ts *terminalSession) print(view *intake.View) {
	title := fmt.Sprintf("Step %d/%d: %s", int(view.Step), int(wizard.LastStep), view.StepLabel)

	var fields []wizard.Field
	if view.Step == wizard.StepTrackingSummary {
		for _, step := range wizard.Steps() {
			fields = append(fields, wizard.FieldsFor(step)...)
		}
		fields = append(fields, wizard.FieldTrackingIdentifier)
	} else {
		fields = wizard.FieldsFor(view.Step)
	}

	rows := make([][]string, 0, len(fields)+4)
	for _, field := range fields {
		value, _ := view.Record.Get(field)
		rows = append(rows, []string{field.Label(), string(field), value})
	}
	if b := view.Barcode; b != nil {
		rows = append(rows,
			[]string{"Symbology", "", b.Symbology},
			[]string{"Checksum", "", strconv.Itoa(b.Checksum)},
			[]string{"Modules", "", strconv.Itoa(b.Modules)},
			[]string{"Raster", "", fmt.Sprintf("%dx%d px", b.WidthPx, b.HeightPx)},
		)
	}
	if view.Submitted {
		rows = append(rows, []string{"Status", "", "submitted"})
	}
	fmt.Fprintln(ts.out, renderTable(title, []string{"Field", "Key", "Value"}, rows, nil))
}

// resolveField matches a field key case-insensitively, including the
// read-only tracking identifier so the operator gets the precise error
func resolveField(name string) (wizard.Field, bool) {
	fields := []wizard.Field{wizard.FieldTrackingIdentifier}
	for _, step := range wizard.Steps() {
		fields = append(fields, wizard.FieldsFor(step)...)
	}
	for _, field := range fields {
		if strings.EqualFold(string(field), name) {
			return field, true
		}
	}
	return "", false
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/message"
	"github.com/banshee-data/livestack/internal/session"
)

// optionSetter is the subset of camera.Actor the console drives directly.
type optionSetter interface {
	SetParameter(ctx context.Context, id camera.OptionID, value float64) error
}

// console is the line-oriented operator interface read from stdin.
//
//	start [name] [save]       start a target session, optionally saving inputs
//	calibrate <name> [save]   start a calibration session
//	pause|resume|save|cancel
//	stretch auto | stretch <low> <high> <gamma>
//	set <option> <value>      e.g. "set gain 200"
//	status
//	quit
type console struct {
	sessions *session.Manager
	cam      optionSetter
	status   func() string
	quit     func()
}

// serve reads commands until r is exhausted or ctx is cancelled.
func (c *console) serve(ctx context.Context, r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, err := c.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		if reply != "" {
			fmt.Fprintln(w, reply)
		}
	}
}

func (c *console) handle(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "start", "calibrate":
		req := session.Request{Calibration: cmd == "calibrate"}
		for _, a := range args {
			if a == "save" {
				req.SaveInputs = true
			} else {
				req.Name = a
			}
		}
		if req.Calibration && req.Name == "" {
			return "", fmt.Errorf("calibrate needs a name")
		}
		ctl, err := c.sessions.Start(ctx, req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("session %s -> %s", ctl.Name, ctl.OutputPath), nil

	case "stretch":
		s, err := parseStretch(args)
		if err != nil {
			return "", err
		}
		c.sessions.UpdateStretch(s)
		return "", nil

	case "set":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: set <option> <value>")
		}
		id, err := camera.ParseOptionID(args[0])
		if err != nil {
			return "", err
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		return "", c.cam.SetParameter(ctx, id, v)

	case "status":
		return fmt.Sprintf("%s %s", c.sessions.Status(), c.status()), nil

	case "quit":
		c.quit()
		return "", nil
	}

	op, err := session.ParseOp(cmd)
	if err != nil {
		return "", err
	}
	return "", c.sessions.Control(op)
}

func parseStretch(args []string) (message.Stretch, error) {
	if len(args) == 1 && args[0] == "auto" {
		return message.DefaultStretch(), nil
	}
	if len(args) != 3 {
		return message.Stretch{}, fmt.Errorf("usage: stretch auto | stretch <low> <high> <gamma>")
	}
	var vals [3]float64
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return message.Stretch{}, fmt.Errorf("invalid stretch value %q: %w", a, err)
		}
		vals[i] = v
	}
	return message.Stretch{Low: vals[0], High: vals[1], Gamma: vals[2]}, nil
}

package main

import (
	"flag"
	"fmt"

	"github.com/syslab-wm/mu"
)

const shortUsage = "simulate [options]"

const usage = `simulate [options]

Run an in-process simulation of a cycle key-agreement session: a group of
participants exchange Z and X values over an in-memory bus and converge on
a shared session key.

options:
  -group FILE
    A roster config file to load participants from, instead of generating
    synthetic ones. The file has one line per participant:

      NAME ID

    where NAME is a display name and ID is the participant's numeric
    ParticipantID. Empty lines are ignored, as are lines that start with a
    '#'. If this option is not provided, the program generates -n synthetic
    participants named p1..pN with sequential ids 1..N.

  -n NUM
    Number of synthetic participants to generate when -group is not given.
    Must be at least 2. Default: 5.

  -out FILE
    Write the session's final state (participant ids, the derived key, and
    the previous key if any rotation happened) as JSON to FILE. Default:
    session.json.

  -churn
    Start the initial cycle with one non-initiator member's local roster
    missing another non-initiator member, stalling the whole cycle, then
    add the missing member to that roster to unstall it, exercising the
    roster re-check path.

  -rotate
    After the first cycle completes, start a second cycle and wait for it
    too, exercising key rotation (Engine.PreviousKey).

example:
    ./simulate -n 8 -rotate -out out.json
    ./simulate -group group.cfg -out out.json`

func printUsage() {
	fmt.Println(usage)
}

type options struct {
	group  string
	n      int
	out    string
	churn  bool
	rotate bool
}

func parseOptions() *options {
	opts := options{}

	flag.Usage = printUsage
	flag.StringVar(&opts.group, "group", "", "")
	flag.IntVar(&opts.n, "n", 5, "")
	flag.StringVar(&opts.out, "out", "session.json", "")
	flag.BoolVar(&opts.churn, "churn", false, "")
	flag.BoolVar(&opts.rotate, "rotate", false, "")
	flag.Parse()

	if flag.NArg() != 0 {
		mu.Fatalf(shortUsage)
	}
	if opts.group == "" && opts.n < 2 {
		mu.Fatalf("error: -n must be at least 2")
	}

	return &opts
}

package main

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	groupkex "github.com/openpaas-ng/mute-crypto"

	"github.com/syslab-wm/mu"
)

// rosterEntry is one line of a -group config file: a display name paired
// with the participant id the simulation assigns it.
type rosterEntry struct {
	name string
	id   groupkex.ParticipantID
}

func validateRosterEntry(fields []string, lineNum int, nameSet map[string]bool) {
	numFields := len(fields)
	if numFields != 2 {
		mu.Fatalf("error: group file line %d has %d fields; expected 2", lineNum, numFields)
	}

	name := fields[0]
	if exists := nameSet[name]; exists {
		mu.Fatalf("error: group file has multiple entries for %q", name)
	}
	nameSet[name] = true
}

func getNewRosterEntry(fields []string, lineNum int) rosterEntry {
	name, idField := fields[0], fields[1]

	id, err := strconv.ParseUint(idField, 10, 64)
	if err != nil {
		mu.Fatalf("error: group file line %d: invalid id %q: %v", lineNum, idField, err)
	}

	return rosterEntry{name: name, id: groupkex.ParticipantID(id)}
}

func getAllRosterEntries(file *os.File) []rosterEntry {
	entries := make([]rosterEntry, 0)
	nameSet := make(map[string]bool)

	lineNum := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		validateRosterEntry(fields, lineNum, nameSet)
		entries = append(entries, getNewRosterEntry(fields, lineNum))
	}

	if err := scanner.Err(); err != nil {
		mu.Fatalf("error: failed to read group file: %v", err)
	}

	if len(entries) == 0 {
		mu.Fatalf("error: no members in the group file")
	}

	return entries
}

func loadRosterFromFile(groupFile string) []rosterEntry {
	file, err := os.Open(groupFile)
	if err != nil {
		mu.Fatalf("error: can't open group file: %v", err)
	}
	defer file.Close()

	return getAllRosterEntries(file)
}

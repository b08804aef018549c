package main

import (
	"testing"
)

func TestCommandTree(t *testing.T) {
	want := []string{"migrate up", "migrate down", "migrate version", "schedule", "check-alerts", "send-reminders", "backfill-categories", "token"}
	for _, path := range want {
		t.Run(path, func(t *testing.T) {
			args := splitPath(path)
			cmd, rest, err := rootCmd.Find(args)
			if err != nil {
				t.Fatalf("Find(%v) error = %v", args, err)
			}
			if len(rest) != 0 || cmd.Name() != args[len(args)-1] {
				t.Errorf("Find(%v) = %s, rest %v", args, cmd.Name(), rest)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	old := flagOwner
	t.Cleanup(func() { flagOwner = old })

	flagOwner = ""
	if _, err := requireOwner(); err == nil {
		t.Error("requireOwner() with no owner should fail")
	}
	flagOwner = "alice"
	if got, err := requireOwner(); err != nil || got != "alice" {
		t.Errorf("requireOwner() = %q, %v", got, err)
	}
}

func TestScheduleRejectsBadID(t *testing.T) {
	old := flagOwner
	t.Cleanup(func() { flagOwner = old })
	flagOwner = "alice"

	if err := runSchedule(scheduleCmd, []string{"twelve"}); err == nil {
		t.Error("runSchedule with a non-numeric id should fail")
	}
}

func splitPath(p string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == ' ' {
			out = append(out, p[start:i])
			start = i + 1
		}
	}
	return out
}

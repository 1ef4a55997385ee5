package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

// TestPrompt_FillsMissingFields only asks for fields not given as flags.
func TestPrompt_FillsMissingFields(t *testing.T) {
	u := newUser{Username: "sam"}
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader("sam@example.com\nhunter22\n"))

	if err := prompt(in, &out, &u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "sam@example.com" || u.Password != "hunter22" {
		t.Errorf("unexpected user: %+v", u)
	}
	if strings.Contains(out.String(), "Username") {
		t.Errorf("expected no username prompt, got %q", out.String())
	}
}

// TestPrompt_RequiresPassword rejects an empty password.
func TestPrompt_RequiresPassword(t *testing.T) {
	u := newUser{Username: "sam", Email: "sam@example.com"}
	in := bufio.NewReader(strings.NewReader("\n"))
	if err := prompt(in, &bytes.Buffer{}, &u); err == nil {
		t.Fatal("expected error for empty password")
	}
}

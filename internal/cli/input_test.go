package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  entry-42 \n"), "Enter record id", &out)
	if err != nil || got != "entry-42" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if !strings.HasPrefix(out.String(), "Enter record id\n> ") {
		t.Fatalf("unexpected prompt %q", out.String())
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}

	if _, err := GetSimpleText(rdr(""), "Name?", &out); err == nil {
		t.Fatal("expected EOF error on empty input")
	}
}

func stubTerminal(t *testing.T, tty bool, pw func(int) ([]byte, error)) {
	t.Helper()
	oldTerm, oldPw := isTerminal, readPassword
	t.Cleanup(func() { isTerminal, readPassword = oldTerm, oldPw })
	isTerminal = func() bool { return tty }
	readPassword = pw
}

func TestGetSecret_Terminal(t *testing.T) {
	stubTerminal(t, true, func(int) ([]byte, error) { return []byte("s3cret\n"), nil })

	var out bytes.Buffer
	got, err := GetSecret(rdr("ignored\n"), "Access token", &out)
	if err != nil || got != "s3cret" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if strings.Contains(out.String(), "s3cret") {
		t.Fatal("secret must not be echoed")
	}
}

func TestGetSecret_TerminalError(t *testing.T) {
	stubTerminal(t, true, func(int) ([]byte, error) { return nil, errors.New("boom") })

	var out bytes.Buffer
	if _, err := GetSecret(rdr(""), "Access token", &out); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetSecret_Pipe(t *testing.T) {
	stubTerminal(t, false, func(int) ([]byte, error) {
		t.Fatal("readPassword must not be called without a terminal")
		return nil, nil
	})

	var out bytes.Buffer
	got, err := GetSecret(rdr("piped\n"), "Access token", &out)
	if err != nil || got != "piped" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

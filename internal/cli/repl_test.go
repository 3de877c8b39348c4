package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	loggedIn bool
	calls    []string
	sendErr  error
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	if name == "send" {
		return s.sendErr
	}
	return nil
}

func (s *stubExec) isLoggedIn() bool                     { return s.loggedIn }
func (s *stubExec) Register(context.Context) error       { return s.record("register") }
func (s *stubExec) Login(context.Context) error          { return s.record("login") }
func (s *stubExec) Logout(context.Context) error         { return s.record("logout") }
func (s *stubExec) ChangePassword(context.Context) error { return s.record("passwd") }
func (s *stubExec) Send(context.Context) error           { return s.record("send") }
func (s *stubExec) Read(context.Context) error           { return s.record("read") }
func (s *stubExec) Contacts(context.Context) error       { return s.record("contacts") }
func (s *stubExec) Missed(context.Context) error         { return s.record("missed") }
func (s *stubExec) SendFile(context.Context) error       { return s.record("sendfile") }
func (s *stubExec) GetFile(context.Context) error        { return s.record("getfile") }
func (s *stubExec) ShowProfile(context.Context) error    { return s.record("profile") }
func (s *stubExec) EditProfile(context.Context) error    { return s.record("editprofile") }
func (s *stubExec) DeleteChat(context.Context) error     { return s.record("delchat") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	orig := printlnFn
	t.Cleanup(func() { printlnFn = orig })

	var lines []string
	printlnFn = func(a ...any) {
		lines = append(lines, fmt.Sprintln(a...))
	}
	return &lines
}

func runWithInput(input string, exec execIface, status func() string) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	runREPL(context.Background(), exec, status, scanner)
}

func TestREPLDispatch(t *testing.T) {
	captureOutput(t)
	s := &stubExec{loggedIn: true}

	runWithInput("send\nread\ncontacts\nmissed\nsendfile\ngetfile\nprofile\neditprofile\ndelchat\npasswd\nlogout\nexit\n", s, func() string { return "alice" })

	assert.Equal(t, []string{
		"send", "read", "contacts", "missed", "sendfile", "getfile",
		"profile", "editprofile", "delchat", "passwd", "logout",
	}, s.calls)
}

func TestREPLShortReadAlias(t *testing.T) {
	captureOutput(t)
	s := &stubExec{loggedIn: true}

	runWithInput("r\n", s, func() string { return "alice" })
	assert.Equal(t, []string{"read"}, s.calls)
}

func TestREPLHelpDependsOnLoginState(t *testing.T) {
	out := captureOutput(t)
	runWithInput("help\n", &stubExec{loggedIn: false}, func() string { return "" })
	assert.Contains(t, strings.Join(*out, ""), "register, login")

	out = captureOutput(t)
	runWithInput("help\n", &stubExec{loggedIn: true}, func() string { return "alice" })
	assert.Contains(t, strings.Join(*out, ""), "send, read")
}

func TestREPLUnknownCommand(t *testing.T) {
	out := captureOutput(t)
	runWithInput("frobnicate\n", &stubExec{}, func() string { return "" })
	assert.Contains(t, strings.Join(*out, ""), "Unknown command")
}

func TestREPLPrintsHandlerErrors(t *testing.T) {
	out := captureOutput(t)
	s := &stubExec{loggedIn: true, sendErr: errors.New("recipient not found")}

	runWithInput("send\n", s, func() string { return "alice" })
	assert.Contains(t, strings.Join(*out, ""), "recipient not found")
}

func TestREPLExitStopsLoop(t *testing.T) {
	captureOutput(t)
	s := &stubExec{loggedIn: true}

	runWithInput("exit\nsend\n", s, func() string { return "alice" })
	assert.Empty(t, s.calls)
}

func TestREPLBlankLinesIgnored(t *testing.T) {
	captureOutput(t)
	s := &stubExec{}

	runWithInput("\n   \nlogin\n", s, func() string { return "" })
	assert.Equal(t, []string{"login"}, s.calls)
}

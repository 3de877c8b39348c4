package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = func(a ...any) { fmt.Println(a...) }

// execIface is the minimal command surface the REPL needs. The real App
// satisfies it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Send(ctx context.Context) error
	Read(ctx context.Context) error
	Contacts(ctx context.Context) error
	Missed(ctx context.Context) error
	SendFile(ctx context.Context) error
	GetFile(ctx context.Context) error
	ShowProfile(ctx context.Context) error
	EditProfile(ctx context.Context) error
	DeleteChat(ctx context.Context) error
}

// runREPL reads a command per line and dispatches to a. Handler errors are
// printed and the loop continues; it exits on EOF or "exit"/"quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("securechat> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: send, read, contacts, missed, sendfile, getfile, profile, editprofile, delchat, passwd, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "passwd":
			err = a.ChangePassword(ctx)

		case "send":
			err = a.Send(ctx)

		case "r", "read":
			err = a.Read(ctx)

		case "contacts":
			err = a.Contacts(ctx)

		case "missed":
			err = a.Missed(ctx)

		case "sendfile":
			err = a.SendFile(ctx)

		case "getfile":
			err = a.GetFile(ctx)

		case "profile":
			err = a.ShowProfile(ctx)

		case "editprofile":
			err = a.EditProfile(ctx)

		case "delchat":
			err = a.DeleteChat(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/securechat/securechat/internal/chat"
)

func (a *App) Send(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	recipient, err := getSimpleText(a.reader, "To", os.Stdout)
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Message", os.Stdout)
	if err != nil {
		return err
	}
	ttl, err := a.askTTL()
	if err != nil {
		return err
	}

	if err := a.chatService.Send(ctx, a.session, recipient, text, ttl); err != nil {
		return err
	}
	printlnFn("Sent.")
	return nil
}

func (a *App) Read(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	partner, err := getSimpleText(a.reader, "Conversation with", os.Stdout)
	if err != nil {
		return err
	}
	msgs, err := a.chatService.LoadConversation(ctx, a.session, partner, 0)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		printlnFn("No messages.")
		return nil
	}

	for _, m := range msgs {
		stamp := m.Timestamp.Local().Format("2006-01-02 15:04")
		switch {
		case m.DecryptFailed:
			printlnFn(fmt.Sprintf("[%s] %s: <unreadable: decryption or verification failed>", stamp, m.From))
		case chat.IsFileDescriptor(m.Plaintext):
			fd, err := chat.ParseFileDescriptor(m.Plaintext)
			name := "?"
			if err == nil {
				name = fd.Name
			}
			printlnFn(fmt.Sprintf("[%s] %s: <file: %s> (use 'getfile' to download)", stamp, m.From, name))
		case !m.SignatureValid:
			printlnFn(fmt.Sprintf("[%s] %s (UNVERIFIED SIGNATURE): %s", stamp, m.From, m.Plaintext))
		default:
			printlnFn(fmt.Sprintf("[%s] %s: %s", stamp, m.From, m.Plaintext))
		}
	}
	return nil
}

func (a *App) Contacts(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	contacts, err := a.chatService.Contacts(ctx, a.session.Username())
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		printlnFn("No contacts yet.")
		return nil
	}
	for _, c := range contacts {
		printlnFn(" -", c)
	}
	return nil
}

func (a *App) Missed(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	missed, err := a.chatService.MissedSenders(ctx, a.session.Username())
	if err != nil {
		return err
	}
	if len(missed) == 0 {
		printlnFn("Nothing new since your last logout.")
		return nil
	}
	printlnFn("New messages from:", missed)
	return nil
}

func (a *App) DeleteChat(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	partner, err := getSimpleText(a.reader, "Delete conversation with", os.Stdout)
	if err != nil {
		return err
	}
	n, err := a.chatService.DeleteConversation(ctx, a.session, partner)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Removed %d message(s). The other side keeps their copies.", n))
	return nil
}

func (a *App) askTTL() (time.Duration, error) {
	answer, err := getSimpleText(a.reader, "Expire after (e.g. 24h, empty for never)", os.Stdout)
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(answer)
	if err != nil || ttl < 0 {
		printlnFn("Unrecognized duration, message will not expire.")
		return 0, nil
	}
	return ttl, nil
}

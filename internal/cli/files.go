package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/securechat/securechat/internal/chat"
	"github.com/securechat/securechat/internal/filex"
)

func (a *App) SendFile(ctx context.Context) error {
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	recipient, err := getSimpleText(a.reader, "To", os.Stdout)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Path to file", os.Stdout)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ttl, err := a.askTTL()
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	if err := a.chatService.SendFile(ctx, a.session, recipient, name, data, ttl); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Sent %s (%d bytes).", name, len(data)))
	return nil
}

// GetFile lists file messages in a conversation and downloads the chosen
// one into the downloads directory.
func (a *App) GetFile(ctx context.Context) error {
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

	var files []string
	for _, m := range msgs {
		if !m.DecryptFailed && chat.IsFileDescriptor(m.Plaintext) {
			files = append(files, m.Plaintext)
		}
	}
	if len(files) == 0 {
		printlnFn("No files in this conversation.")
		return nil
	}

	for i, plaintext := range files {
		fd, err := chat.ParseFileDescriptor(plaintext)
		if err != nil {
			continue
		}
		printlnFn(fmt.Sprintf("%d: %s", i+1, fd.Name))
	}
	choice, err := getSimpleText(a.reader, "Number to download", os.Stdout)
	if err != nil {
		return err
	}
	var idx int
	if _, err := fmt.Sscanf(choice, "%d", &idx); err != nil || idx < 1 || idx > len(files) {
		return fmt.Errorf("no such file")
	}

	name, data, err := a.chatService.FetchFile(ctx, files[idx-1])
	if err != nil {
		return err
	}

	path, err := filex.SaveToDir(downloadDir, name, data)
	if err != nil {
		return err
	}
	printlnFn("Saved to", path)
	return nil
}

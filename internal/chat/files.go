package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/securechat/securechat/internal/auth"
	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/cryptox"
)

// fileDescriptorPrefix marks a message plaintext as a file descriptor. The
// descriptor carries the blob id plus the file's own key and IV, so the
// file key travels wrapped inside the message engine's per-recipient
// envelope.
const fileDescriptorPrefix = "securechat-file:"

// FileDescriptor is the parsed form of a file-transfer message.
type FileDescriptor struct {
	ID   string
	Key  []byte
	IV   []byte
	Name string
}

// SendFile encrypts data under a fresh random key, stores the ciphertext in
// the blob store and sends the descriptor to recipient as an ordinary
// message. Blob and message records share the same ttl.
func (s *Service) SendFile(ctx context.Context, session *auth.Session, recipient, name string, data []byte, ttl time.Duration) error {
	key := cryptox.RandBytes(cryptox.KeySize)
	defer common.WipeByteArray(key)
	iv := cryptox.RandBytes(cryptox.IVSize)

	ciphertext, err := cryptox.Encrypt(key, iv, data, nil)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	var expireAt *time.Time
	if ttl > 0 {
		t := s.now().UTC().Add(ttl)
		expireAt = &t
	}
	if err := s.blobs.Put(ctx, id, ciphertext, expireAt); err != nil {
		return err
	}

	descriptor := encodeFileDescriptor(&FileDescriptor{ID: id, Key: key, IV: iv, Name: name})
	if err := s.Send(ctx, session, recipient, descriptor, ttl); err != nil {
		return err
	}

	s.logger.Debug(ctx, "file sent", "to", recipient, "name", name, "bytes", len(data))
	return nil
}

// FetchFile resolves a file descriptor from a decrypted message plaintext:
// fetch the blob, decrypt with the embedded key and IV. A missing or
// expired blob is common.ErrFileUnavailable, which is distinct from a
// decryption failure of the blob contents.
func (s *Service) FetchFile(ctx context.Context, plaintext string) (string, []byte, error) {
	fd, err := ParseFileDescriptor(plaintext)
	if err != nil {
		return "", nil, err
	}

	ciphertext, err := s.blobs.Get(ctx, fd.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", nil, common.ErrFileUnavailable
		}
		return "", nil, err
	}

	data, err := cryptox.Decrypt(fd.Key, fd.IV, ciphertext, nil)
	if err != nil {
		return "", nil, err
	}
	return fd.Name, data, nil
}

// IsFileDescriptor reports whether a message plaintext carries a file.
func IsFileDescriptor(plaintext string) bool {
	return strings.HasPrefix(plaintext, fileDescriptorPrefix)
}

func encodeFileDescriptor(fd *FileDescriptor) string {
	return fileDescriptorPrefix + strings.Join([]string{
		fd.ID,
		base64.StdEncoding.EncodeToString(fd.Key),
		base64.StdEncoding.EncodeToString(fd.IV),
		fd.Name,
	}, "|")
}

// ParseFileDescriptor parses a descriptor plaintext. The name is the last
// field, so file names may contain the separator.
func ParseFileDescriptor(plaintext string) (*FileDescriptor, error) {
	if !IsFileDescriptor(plaintext) {
		return nil, fmt.Errorf("not a file descriptor")
	}
	parts := strings.SplitN(strings.TrimPrefix(plaintext, fileDescriptorPrefix), "|", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("malformed file descriptor")
	}
	key, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed file key: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("malformed file iv: %w", err)
	}
	return &FileDescriptor{ID: parts[0], Key: key, IV: iv, Name: parts[3]}, nil
}

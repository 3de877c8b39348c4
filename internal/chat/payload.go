package chat

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// payload is the cleartext bundle that gets encrypted into each copy. It is
// self-describing so a future version can add lines without breaking old
// readers.
type payload struct {
	From      string
	To        string
	Timestamp time.Time
	Plaintext string
	Digest    []byte
	Signature []byte
}

// encodePayload renders key=value lines. The message body, digest and
// signature are base64 so values can never contain a bare newline and the
// format stays unambiguous for arbitrary plaintext.
func encodePayload(p *payload) []byte {
	var b strings.Builder
	b.WriteString("from=" + p.From + "\n")
	b.WriteString("to=" + p.To + "\n")
	b.WriteString("ts=" + strconv.FormatInt(p.Timestamp.UnixMilli(), 10) + "\n")
	b.WriteString("msg=" + base64.StdEncoding.EncodeToString([]byte(p.Plaintext)) + "\n")
	b.WriteString("digest=" + base64.StdEncoding.EncodeToString(p.Digest) + "\n")
	b.WriteString("sig=" + base64.StdEncoding.EncodeToString(p.Signature) + "\n")
	return []byte(b.String())
}

func parsePayload(data []byte) (*payload, error) {
	fields := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("payload: malformed line")
		}
		fields[key] = value
	}

	for _, key := range []string{"from", "to", "ts", "msg", "digest", "sig"} {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("payload: missing %q", key)
		}
	}

	millis, err := strconv.ParseInt(fields["ts"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("payload: bad timestamp: %w", err)
	}
	msg, err := base64.StdEncoding.DecodeString(fields["msg"])
	if err != nil {
		return nil, fmt.Errorf("payload: bad message encoding: %w", err)
	}
	digest, err := base64.StdEncoding.DecodeString(fields["digest"])
	if err != nil {
		return nil, fmt.Errorf("payload: bad digest encoding: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(fields["sig"])
	if err != nil {
		return nil, fmt.Errorf("payload: bad signature encoding: %w", err)
	}

	return &payload{
		From:      fields["from"],
		To:        fields["to"],
		Timestamp: time.UnixMilli(millis).UTC(),
		Plaintext: string(msg),
		Digest:    digest,
		Signature: sig,
	}, nil
}

// Package mimeparse reads a raw RFC 5322 message down to the flat shape the
// relay can forward: headers, a decoded subject, one text/plain body and one
// text/html body. Any other part is reported but not kept.
package mimeparse

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// Message is the flattened form of a parsed message.
type Message struct {
	Header  mail.Header
	Subject string
	Text    string
	HTML    string

	// Extra lists parts beyond the first text and first HTML body, such as
	// attachments, inline images or a second text alternative.
	Extra []Part
}

// Part describes a MIME part that was not used as a body.
type Part struct {
	ContentType string
	Filename    string
	Size        int
}

// Parse parses a raw message. A message without Content-Type is text/plain.
// Nested multiparts are walked depth-first.
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mimeparse: read message: %w", err)
	}

	m := &Message{
		Header:  msg.Header,
		Subject: decodeHeader(msg.Header.Get("Subject")),
	}

	if err := m.walk(msg.Body, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), ""); err != nil {
		return nil, err
	}
	return m, nil
}

// Addresses parses an address-list header. A missing header yields nil
// without error.
func (m *Message) Addresses(key string) ([]*mail.Address, error) {
	list, err := m.Header.AddressList(key)
	if errors.Is(err, mail.ErrHeaderNotPresent) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mimeparse: %s header: %w", key, err)
	}
	return list, nil
}

func (m *Message) walk(r io.Reader, contentType, encoding, disposition string) error {
	mediaType := "text/plain"
	var params map[string]string
	if contentType != "" {
		var err error
		mediaType, params, err = mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = "application/octet-stream"
		}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return errors.New("mimeparse: multipart body missing boundary")
		}
		mr := multipart.NewReader(r, boundary)
		for {
			part, err := mr.NextRawPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("mimeparse: next part: %w", err)
			}
			err = m.walk(part,
				part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"),
				part.Header.Get("Content-Disposition"))
			if err != nil {
				return err
			}
		}
	}

	body, err := decodeBody(r, encoding)
	if err != nil {
		return fmt.Errorf("mimeparse: read %s body: %w", mediaType, err)
	}

	dispType, filename := parseDisposition(disposition)
	if filename == "" {
		filename = params["name"]
	}
	isBody := dispType != "attachment" && filename == ""

	switch {
	case isBody && mediaType == "text/plain" && m.Text == "":
		m.Text = string(body)
	case isBody && mediaType == "text/html" && m.HTML == "":
		m.HTML = string(body)
	default:
		m.Extra = append(m.Extra, Part{
			ContentType: mediaType,
			Filename:    filename,
			Size:        len(body),
		})
	}
	return nil
}

func parseDisposition(disposition string) (string, string) {
	if disposition == "" {
		return "", ""
	}
	dispType, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", ""
	}
	return strings.ToLower(dispType), params["filename"]
}

// decodeBody reads r, undoing base64 or quoted-printable transfer encoding.
func decodeBody(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return io.ReadAll(base64.NewDecoder(base64.StdEncoding, r))
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(r))
	default:
		return io.ReadAll(r)
	}
}

// decodeHeader decodes RFC 2047 encoded-words, returning the input unchanged
// when it cannot be decoded.
func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return out
}

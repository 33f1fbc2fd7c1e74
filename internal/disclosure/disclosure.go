// Package disclosure reads invention disclosure documents into plain text.
package disclosure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxFileBytes = 10 << 20
	maxTextRunes = 24000
	minPrintRun  = 24
)

var ErrNoText = errors.New("no extractable text found")

type Text struct {
	Body      string
	Method    string
	Truncated bool
}

// pdfToText is swapped in tests.
var pdfToText = func(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Read extracts text from a .pdf, .txt or .md file. PDFs go through
// pdftotext when it is installed and fall back to printable byte runs.
func Read(ctx context.Context, path string) (Text, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Text{}, err
	}
	if info.Size() > MaxFileBytes {
		return Text{}, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), MaxFileBytes)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(ctx, path)
	case ".txt", ".md", ".markdown", "":
		blob, err := os.ReadFile(path)
		if err != nil {
			return Text{}, err
		}
		if !utf8.Valid(blob) {
			return Text{}, fmt.Errorf("%s is not valid UTF-8 text", filepath.Base(path))
		}
		return finish(string(blob), "plain")
	default:
		return Text{}, fmt.Errorf("unsupported file type %q: use .pdf, .txt or .md", filepath.Ext(path))
	}
}

func readPDF(ctx context.Context, path string) (Text, error) {
	if text, err := pdfToText(ctx, path); err == nil && strings.TrimSpace(text) != "" {
		return finish(text, "pdftotext")
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return Text{}, err
	}
	return finish(printableRuns(blob), "byte-fallback")
}

func printableRuns(blob []byte) string {
	var runs []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); len(s) >= minPrintRun {
			runs = append(runs, s)
		}
		b.Reset()
	}
	for _, c := range blob {
		r := rune(c)
		if c < utf8.RuneSelf && (unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r') {
			b.WriteByte(c)
			continue
		}
		flush()
	}
	flush()
	return strings.Join(runs, "\n")
}

func finish(text, method string) (Text, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\x00", ""))
	if text == "" {
		return Text{}, ErrNoText
	}
	if utf8.RuneCountInString(text) <= maxTextRunes {
		return Text{Body: text, Method: method}, nil
	}
	return Text{Body: string([]rune(text)[:maxTextRunes]), Method: method, Truncated: true}, nil
}

// ReadBytes extracts text from an uploaded document. The file name selects
// the format the same way Read does.
func ReadBytes(ctx context.Context, filename string, blob []byte) (Text, error) {
	if len(blob) > MaxFileBytes {
		return Text{}, fmt.Errorf("file too large: %d bytes (max %d)", len(blob), MaxFileBytes)
	}
	dir, err := os.MkdirTemp("", "disclosure-*")
	if err != nil {
		return Text{}, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload"+strings.ToLower(filepath.Ext(filepath.Base(filename))))
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return Text{}, err
	}
	return Read(ctx, path)
}

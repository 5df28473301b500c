// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extract turns uploaded documents into plain text for analysis.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/net/html"
)

// DefaultMaxSize is the largest accepted document
const DefaultMaxSize = 5 * 1024 * 1024

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrTooLarge          = errors.New("file too large")
	ErrNoText            = errors.New("no text could be extracted")
)

// Document is the text pulled from one file
type Document struct {
	Name     string
	Type     string // pdf, txt or html
	Text     string
	Pages    int
	Size     int64
	Warnings []string
}

// Extractor reads supported document types
type Extractor struct {
	MaxSize int64
}

// New returns an extractor limited to maxSize bytes, DefaultMaxSize when zero
func New(maxSize int64) *Extractor {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Extractor{MaxSize: maxSize}
}

// FileType maps a file name to one of pdf, txt or html
func FileType(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "pdf", nil
	case ".txt", ".text":
		return "txt", nil
	case ".html", ".htm":
		return "html", nil
	}
	return "", fmt.Errorf("%w: %s (supported: .pdf, .txt, .html)", ErrUnsupportedFormat, filepath.Ext(name))
}

// File extracts text from the document at path
func (e *Extractor) File(path string) (*Document, error) {
	fileType, err := FileType(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	if info.Size() > e.MaxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, filepath.Base(path), info.Size(), e.MaxSize)
	}

	doc := &Document{Name: filepath.Base(path), Type: fileType, Size: info.Size()}
	switch fileType {
	case "pdf":
		err = e.pdfFile(path, doc)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			err = e.fromBytes(data, doc)
		}
	}
	if err != nil {
		return nil, err
	}
	return finish(doc)
}

// Reader extracts text from an upload named name. PDFs are spooled to a
// temporary file because both PDF libraries work on files.
func (e *Extractor) Reader(name string, r io.Reader) (*Document, error) {
	fileType, err := FileType(name)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, e.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading upload: %w", err)
	}
	if int64(len(data)) > e.MaxSize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, e.MaxSize)
	}

	doc := &Document{Name: filepath.Base(name), Type: fileType, Size: int64(len(data))}
	if fileType != "pdf" {
		if err := e.fromBytes(data, doc); err != nil {
			return nil, err
		}
		return finish(doc)
	}

	tmp, err := os.CreateTemp("", "toxic-scan-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("error spooling upload: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("error spooling upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("error spooling upload: %w", err)
	}
	if err := e.pdfFile(tmp.Name(), doc); err != nil {
		return nil, err
	}
	return finish(doc)
}

func (e *Extractor) fromBytes(data []byte, doc *Document) error {
	switch doc.Type {
	case "txt":
		doc.Text = plainText(data)
	case "html":
		text, err := htmlText(data)
		if err != nil {
			return fmt.Errorf("error parsing HTML: %w", err)
		}
		doc.Text = text
	}
	return nil
}

func finish(doc *Document) (*Document, error) {
	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		return nil, fmt.Errorf("%w from %s", ErrNoText, doc.Name)
	}
	return doc, nil
}

// plainText decodes UTF-8, dropping invalid byte sequences
func plainText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}

// htmlText joins the document's text nodes, one per line, skipping
// script and style content
func htmlText(data []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return strings.Join(parts, "\n"), nil
}

// pdfFile validates the file with pdfcpu, then reads page text with
// ledongthuc/pdf
func (e *Extractor) pdfFile(path string, doc *Document) error {
	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("pdf validation: %v", err))
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	doc.Pages = r.NumPage()
	var buf strings.Builder
	for i := 1; i <= doc.Pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(text)
	}
	doc.Text = buf.String()
	return nil
}

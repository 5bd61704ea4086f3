// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts document text locally for providers that have
// no file-extraction API. LocalFiles exposes a directory of converted
// Markdown files through the same list, upload, and content operations a
// remote file store offers.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/workspace"
)

const markdownExt = ".md"

// Converter transforms a PDF file into Markdown text.
type Converter interface {
	Convert(ctx context.Context, pdfPath string) (string, error)
}

// frontmatter is the YAML header written above converted text.
type frontmatter struct {
	PaperID     string `yaml:"paper_id"`
	SourcePDF   string `yaml:"source_pdf"`
	ConvertedAt string `yaml:"converted_at"`
}

// LocalFiles is a file store backed by a directory of Markdown files, one
// per converted document. A file's ID is its Markdown name; its Filename
// is the name of the PDF it came from, so callers match stored files by
// document name exactly as they would against a remote store.
type LocalFiles struct {
	Converter Converter
	Dir       string
	Now       func() time.Time
}

var _ llm.FileStore = (*LocalFiles)(nil)

// ListFiles returns every converted document in Dir. A missing directory
// lists as empty.
func (l *LocalFiles) ListFiles(_ context.Context) ([]llm.RemoteFile, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", l.Dir, err)
	}
	var files []llm.RemoteFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != markdownExt {
			continue
		}
		base := strings.TrimSuffix(e.Name(), markdownExt)
		files = append(files, llm.RemoteFile{ID: e.Name(), Filename: base + ".pdf"})
	}
	return files, nil
}

// UploadFile converts the PDF at path and stores the result. An existing
// conversion of the same document is replaced.
func (l *LocalFiles) UploadFile(ctx context.Context, path string) (llm.RemoteFile, error) {
	body, err := l.Converter.Convert(ctx, path)
	if err != nil {
		return llm.RemoteFile{}, err
	}

	name := filepath.Base(path)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	content, err := addFrontmatter(frontmatter{
		PaperID:     base,
		SourcePDF:   path,
		ConvertedAt: l.now().UTC().Format(time.RFC3339),
	}, body)
	if err != nil {
		return llm.RemoteFile{}, err
	}

	id := base + markdownExt
	if err := workspace.WriteFileAtomic(filepath.Join(l.Dir, id), content, 0o644); err != nil {
		return llm.RemoteFile{}, err
	}
	return llm.RemoteFile{ID: id, Filename: name}, nil
}

// FileContent returns the converted text of fileID without its frontmatter.
func (l *LocalFiles) FileContent(_ context.Context, fileID string) (string, error) {
	if fileID == "" || fileID != filepath.Base(fileID) {
		return "", fmt.Errorf("invalid file id %q", fileID)
	}
	data, err := os.ReadFile(filepath.Join(l.Dir, fileID))
	if err != nil {
		return "", fmt.Errorf("reading converted document: %w", err)
	}
	_, body := splitFrontmatter(data)
	return string(body), nil
}

func (l *LocalFiles) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func addFrontmatter(fm frontmatter, body string) ([]byte, error) {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.Bytes(), nil
}

// splitFrontmatter separates a leading YAML block from the body. Content
// without frontmatter is returned whole.
func splitFrontmatter(data []byte) (frontmatter, []byte) {
	var fm frontmatter
	rest, ok := bytes.CutPrefix(data, []byte("---\n"))
	if !ok {
		return fm, data
	}
	header, body, ok := bytes.Cut(rest, []byte("\n---\n"))
	if !ok {
		return fm, data
	}
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return frontmatter{}, data
	}
	return fm, bytes.TrimLeft(body, "\n")
}

package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var embedded embed.FS

const (
	articleSystemTemplate = "article_system.tmpl"
	articleUserTemplate   = "article_user.tmpl"
	rewriteTemplate       = "rewrite.tmpl"
	keywordsTemplate      = "keywords.tmpl"
)

// Renderer renders prompt templates. Files found in dir take precedence over
// the embedded defaults.
type Renderer struct {
	dir string

	mu        sync.RWMutex
	templates map[string]*template.Template
}

func NewRenderer(dir string) *Renderer {
	return &Renderer{
		dir:       strings.TrimSpace(dir),
		templates: make(map[string]*template.Template),
	}
}

type Article struct {
	System string
	User   string
}

func (r *Renderer) Article(options Options) (Article, error) {
	system, err := r.render(articleSystemTemplate, options)
	if err != nil {
		return Article{}, err
	}
	user, err := r.render(articleUserTemplate, options)
	if err != nil {
		return Article{}, err
	}
	return Article{System: system, User: user}, nil
}

func (r *Renderer) Rewrite(text, instruction, tone string) (string, error) {
	return r.render(rewriteTemplate, map[string]any{
		"Text":        text,
		"Instruction": instruction,
		"Tone":        tone,
	})
}

func (r *Renderer) Keywords(content string, count int) (string, error) {
	return r.render(keywordsTemplate, map[string]any{
		"Content": content,
		"Count":   count,
	})
}

func (r *Renderer) render(fileName string, data any) (string, error) {
	tmpl, err := r.loadTemplate(fileName)
	if err != nil {
		return "", err
	}

	buffer := bytes.NewBuffer(nil)
	if err := tmpl.Execute(buffer, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", fileName, err)
	}
	return strings.TrimSpace(buffer.String()), nil
}

func (r *Renderer) loadTemplate(fileName string) (*template.Template, error) {
	r.mu.RLock()
	if tmpl, ok := r.templates[fileName]; ok {
		r.mu.RUnlock()
		return tmpl, nil
	}
	r.mu.RUnlock()

	content, err := r.readTemplate(fileName)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(fileName).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", fileName, err)
	}

	r.mu.Lock()
	r.templates[fileName] = tmpl
	r.mu.Unlock()

	return tmpl, nil
}

func (r *Renderer) readTemplate(fileName string) ([]byte, error) {
	if r.dir != "" {
		content, err := os.ReadFile(filepath.Join(r.dir, fileName))
		if err == nil {
			return content, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read prompt template %s: %w", fileName, err)
		}
	}

	content, err := embedded.ReadFile("templates/" + fileName)
	if err != nil {
		return nil, fmt.Errorf("read embedded prompt template %s: %w", fileName, err)
	}
	return content, nil
}

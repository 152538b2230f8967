package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Basic info
	Name           string `json:"Name"`
	Email          string `json:"Email"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	// Company info
	CompanyName string `json:"CompanyName"`
	AppName     string `json:"AppName"`

	// URLs
	LogoURL    string `json:"LogoURL"`
	SupportURL string `json:"SupportURL"`
	LoginURL   string `json:"LoginURL"`

	// Additional data
	IP        string    `json:"IP"`
	Time      string    `json:"Time"`
	TimeAt    time.Time `json:"TimeAt"`
	UserAgent string    `json:"UserAgent"`
	Location  string    `json:"Location"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		if rv.IsZero() {
			return fallback
		}
		return value
	}
}

func baseFuncs() map[string]any {
	return map[string]any{
		"now":     func() time.Time { return time.Now().UTC() },
		"upper":   strings.ToUpper,
		"default": defaultFn,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// ---- Template names ----

const (
	Welcome           = "welcome"
	LoginNotification = "login_notification"
)

// set is the parsed subject/text/html trio behind one template name.
type set struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

// sets is parsed from FS at init; a parse error panics.
var sets = mustParseSets(Welcome, LoginNotification)

func mustParseSets(names ...string) map[string]set {
	out := make(map[string]set, len(names))
	for _, name := range names {
		s, err := parseSet(name)
		if err != nil {
			panic(err)
		}
		out[name] = s
	}
	return out
}

func parseSet(name string) (set, error) {
	subject, err := texttpl.New(name + ".subject.tmpl").Funcs(textFuncMap).ParseFS(FS, name+".subject.tmpl")
	if err != nil {
		return set{}, fmt.Errorf("parse subject %q: %w", name, err)
	}
	text, err := texttpl.New(name + ".text.tmpl").Funcs(textFuncMap).ParseFS(FS, name+".text.tmpl")
	if err != nil {
		return set{}, fmt.Errorf("parse text %q: %w", name, err)
	}
	html, err := htmpl.New(name + ".html.tmpl").Funcs(htmlFuncMap).ParseFS(FS, name+".html.tmpl")
	if err != nil {
		return set{}, fmt.Errorf("parse html %q: %w", name, err)
	}
	return set{subject: subject, text: text, html: html}, nil
}

// Known reports whether name has a subject/text/html template set.
func Known(name string) bool {
	_, ok := sets[name]
	return ok
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func execute(t executor, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render executes the subject, text and html templates registered under name.
func Render(name string, data any) (subject string, text string, html string, err error) {
	s, ok := sets[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
	if subject, err = execute(s.subject, data); err != nil {
		return "", "", "", fmt.Errorf("exec subject %q: %w", name, err)
	}
	if text, err = execute(s.text, data); err != nil {
		return "", "", "", fmt.Errorf("exec text %q: %w", name, err)
	}
	if html, err = execute(s.html, data); err != nil {
		return "", "", "", fmt.Errorf("exec html %q: %w", name, err)
	}
	return strings.TrimSpace(subject), text, html, nil
}

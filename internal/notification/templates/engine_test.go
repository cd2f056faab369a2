package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmbeddedEscapesHTML(t *testing.T) {
	e := NewEngine(Config{}, nil)
	out, err := Render(context.Background(), e, VerifyEmail, VerifyEmailData{
		Email:     "<b>x</b>@example.com",
		Link:      "https://app.example.com/verify-email?token=a%3Ab",
		ExpiresIn: "1 day",
	})
	require.NoError(t, err)

	assert.Equal(t, "Verify your email address", out.Subject)
	assert.Contains(t, out.EmailText, "<b>x</b>@example.com")
	assert.NotContains(t, out.EmailHTML, "<b>x</b>")
	assert.Contains(t, out.EmailHTML, "&lt;b&gt;x&lt;/b&gt;")
}

func TestRenderFromDiskReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.verify_email.tmpl")
	require.NoError(t, os.WriteFile(path, []byte(`{{define "subject"}}v1 {{.Email}}{{end}}{{define "email_text"}}hi{{end}}`), 0o600))

	e := NewEngine(Config{Dir: dir, Reload: true}, nil)
	data := VerifyEmailData{Email: "a@example.com"}

	out, err := Render(context.Background(), e, VerifyEmail, data)
	require.NoError(t, err)
	assert.Equal(t, "v1 a@example.com", out.Subject)

	require.NoError(t, os.WriteFile(path, []byte(`{{define "subject"}}v2 {{.Email}}{{end}}{{define "email_text"}}hi{{end}}`), 0o600))
	out, err = Render(context.Background(), e, VerifyEmail, data)
	require.NoError(t, err)
	assert.Equal(t, "v2 a@example.com", out.Subject)
}

func TestRenderUnknownTemplate(t *testing.T) {
	e := NewEngine(Config{}, nil)
	_, err := e.RenderAny(context.Background(), "user.missing", nil)
	assert.Error(t, err)
}

func TestRenderRequiresSubjectAndBody(t *testing.T) {
	dir := t.TempDir()
	e := NewEngine(Config{Dir: dir, Reload: true}, nil)
	path := filepath.Join(dir, "user.verify_email.tmpl")

	require.NoError(t, os.WriteFile(path, []byte(`{{define "email_text"}}hi{{end}}`), 0o600))
	_, err := Render(context.Background(), e, VerifyEmail, VerifyEmailData{})
	assert.ErrorContains(t, err, "missing subject")

	require.NoError(t, os.WriteFile(path, []byte(`{{define "subject"}}hi{{end}}`), 0o600))
	_, err = Render(context.Background(), e, VerifyEmail, VerifyEmailData{})
	assert.ErrorContains(t, err, "no email body")
}

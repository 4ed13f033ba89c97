package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/storefront"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestRender(t *testing.T) {
	tempDir := t.TempDir()
	writeTemplate(t, tempDir, "greeting.tmpl", "Hello {{.Data}}!")
	writeTemplate(t, tempDir, "receipt.tmpl", "{{.Data.Name}} paid {{.Data.Total}}")
	ctx := context.Background()

	t.Run("Simple", func(t *testing.T) {
		p := &TemplatePlugin{}
		require.NoError(t, p.Load([]string{tempDir}))

		result, err := p.Render(ctx, "greeting.tmpl", "World")
		require.NoError(t, err)
		assert.Equal(t, "Hello World!", result)
	})

	t.Run("StructData", func(t *testing.T) {
		p := &TemplatePlugin{}
		require.NoError(t, p.Load([]string{tempDir}))

		result, err := p.Render(ctx, "receipt.tmpl", struct {
			Name  string
			Total string
		}{"Alice", "23.50 USD"})
		require.NoError(t, err)
		assert.Equal(t, "Alice paid 23.50 USD", result)
	})

	t.Run("MissingTemplate", func(t *testing.T) {
		p := &TemplatePlugin{}
		require.NoError(t, p.Load([]string{tempDir}))
		_, err := p.Render(ctx, "nonexistent.tmpl", nil)
		require.Error(t, err)
	})

	t.Run("NotInitialized", func(t *testing.T) {
		p := &TemplatePlugin{}
		_, err := p.Render(ctx, "greeting.tmpl", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no templates have been initialized")
	})

	t.Run("ConfigAccess", func(t *testing.T) {
		writeTemplate(t, tempDir, "config.tmpl", `Store: {{index .Config "name"}}`)
		p := &TemplatePlugin{}
		require.NoError(t, p.Load([]string{tempDir}))

		result, err := p.Render(ctx, "config.tmpl", nil)
		require.NoError(t, err)
		assert.Contains(t, result, "Store:")
	})
}

func TestAlwaysParse(t *testing.T) {
	tempDir := t.TempDir()
	writeTemplate(t, tempDir, "dynamic.tmpl", "Version 1: {{.Data}}")
	ctx := context.Background()

	t.Run("Enabled", func(t *testing.T) {
		p := &TemplatePlugin{alwaysParse: true}
		require.NoError(t, p.Load([]string{tempDir}))

		result, err := p.Render(ctx, "dynamic.tmpl", "Test")
		require.NoError(t, err)
		assert.Equal(t, "Version 1: Test", result)

		writeTemplate(t, tempDir, "dynamic.tmpl", "Version 2: {{.Data}}")

		result, err = p.Render(ctx, "dynamic.tmpl", "Test")
		require.NoError(t, err)
		assert.Equal(t, "Version 2: Test", result)
	})

	t.Run("Disabled", func(t *testing.T) {
		writeTemplate(t, tempDir, "dynamic.tmpl", "Version 1: {{.Data}}")

		p := &TemplatePlugin{alwaysParse: false}
		require.NoError(t, p.Load([]string{tempDir}))

		result, err := p.Render(ctx, "dynamic.tmpl", "Test")
		require.NoError(t, err)
		assert.Equal(t, "Version 1: Test", result)

		writeTemplate(t, tempDir, "dynamic.tmpl", "Version 2: {{.Data}}")

		// Without alwaysParse the cached version is served.
		result, err = p.Render(ctx, "dynamic.tmpl", "Test")
		require.NoError(t, err)
		assert.Equal(t, "Version 1: Test", result)
	})
}

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	writeTemplate(t, tempDir, "init.tmpl", "Initialized: {{.Data}}")
	ctx := context.Background()

	p := &TemplatePlugin{dirs: []string{tempDir}}
	require.NoError(t, p.Init(ctx, &storefront.Registry{}))

	result, err := p.Render(ctx, "init.tmpl", "Success")
	require.NoError(t, err)
	assert.Equal(t, "Initialized: Success", result)
}

func TestParseErrors(t *testing.T) {
	tempDir := t.TempDir()
	writeTemplate(t, tempDir, "invalid.tmpl", "{{.Data")

	p := &TemplatePlugin{}
	require.Error(t, p.Load([]string{tempDir}))
}

func TestSubdirectories(t *testing.T) {
	tempDir := t.TempDir()
	subdir := filepath.Join(tempDir, "mail")
	require.NoError(t, os.MkdirAll(subdir, 0755))
	writeTemplate(t, subdir, "nested.tmpl", "Nested: {{.Data}}")

	p := &TemplatePlugin{}
	require.NoError(t, p.Load([]string{tempDir}))

	result, err := p.Render(context.Background(), "nested.tmpl", "Success")
	require.NoError(t, err)
	assert.Equal(t, "Nested: Success", result)
}

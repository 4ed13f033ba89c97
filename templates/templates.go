// Package templates loads and renders text templates, primarily for outbound
// mail such as order receipts.
//
// Configuration:
// |---------------------------|-----------------------|
// | Env                       | JSON                  |
// | --------------------------|-----------------------|
// | SF__TEMPLATES__ALWAYSPARSE| templates.alwaysParse |
// | SF__TEMPLATES__DIRS       | templates.dirs        |
// |---------------------------|-----------------------|
package templates

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"google.golang.org/grpc/codes"

	"github.com/dpup/storefront"
	"github.com/dpup/storefront/errors"
)

func init() {
	storefront.RegisterConfigKeys(
		storefront.ConfigKeyInfo{
			Key:         "templates.alwaysParse",
			Description: "Whether to reparse templates on every render",
			Type:        "bool",
		},
		storefront.ConfigKeyInfo{
			Key:         "templates.dirs",
			Description: "Directories to load templates from",
			Type:        "[]string",
		},
	)
}

// Constant name for identifying the templates plugin.
const PluginName = "templates"

// Plugin returns a new TemplatePlugin.
func Plugin() *TemplatePlugin {
	return &TemplatePlugin{
		alwaysParse: storefront.ConfigBool("templates.alwaysParse"),
		dirs:        storefront.ConfigStrings("templates.dirs"),
	}
}

// TemplatePlugin exposes utilities for reading and rendering templates.
type TemplatePlugin struct {
	alwaysParse bool
	dirs        []string
	templates   *template.Template
}

// From storefront.Plugin.
func (p *TemplatePlugin) Name() string {
	return PluginName
}

// From storefront.InitializablePlugin.
func (p *TemplatePlugin) Init(ctx context.Context, r *storefront.Registry) error {
	return p.parseAll()
}

// Load templates (*.tmpl) contained within the provided directories and all
// sub-directories.
func (p *TemplatePlugin) Load(dirs []string) error {
	p.init()
	p.dirs = append(p.dirs, dirs...)
	for _, dir := range p.dirs {
		if err := p.parse(dir); err != nil {
			return err
		}
	}
	return nil
}

// Render executes a template by name with the provided data.
//
// The data parameter is wrapped in a TemplateData struct before being passed
// to the template. Within templates, access your data fields via
// .Data.FieldName, not .FieldName directly. The Config field provides access
// to all configuration values.
//
// Example template usage:
//
//	Thanks for shopping at {{index .Config "name"}}, {{.Data.Name}}!
func (p *TemplatePlugin) Render(ctx context.Context, name string, data interface{}) (string, error) {
	if p.alwaysParse {
		if err := p.parseAll(); err != nil {
			return "", err
		}
	}
	if p.templates == nil {
		return "", errors.NewC("no templates have been initialized", codes.Internal)
	}
	var b bytes.Buffer
	if err := p.templates.ExecuteTemplate(&b, name, TemplateData{Data: data, Config: storefront.Config.All()}); err != nil {
		return "", errors.Wrap(err, 0)
	}
	return b.String(), nil
}

func (p *TemplatePlugin) init() {
	if p.templates == nil || p.alwaysParse {
		p.templates = template.New("").Funcs(template.FuncMap{
			// template functions can be added here.
		})
	}
}

func (p *TemplatePlugin) parseAll() error {
	p.init()
	for _, dir := range p.dirs {
		if err := p.parse(dir); err != nil {
			return err
		}
	}
	return nil
}

func (p *TemplatePlugin) parse(dir string) error {
	return filepath.Walk(dir, func(path string, _ os.FileInfo, _ error) error {
		if strings.HasSuffix(path, ".tmpl") {
			if _, err := p.templates.ParseFiles(path); err != nil {
				return err
			}
		}
		return nil
	})
}

// TemplateData is the wrapper struct passed to all templates during
// rendering. Templates access the caller-provided data via .Data and
// configuration via .Config.
type TemplateData struct {
	// Data contains the caller-provided data passed to Render.
	Data interface{}
	// Config contains all values from the global configuration.
	Config map[string]interface{}
}

package config

import "path/filepath"

// Project directory names, relative to Root.
const (
	PostsDir     = "posts"
	PagesDir     = "pages"
	ResourcesDir = "resources"
	TemplatesDir = "templates"
	OutputDir    = "site"
)

// Paths resolves the project layout against a root directory.
type Paths struct {
	Root      string
	Posts     string
	Pages     string
	Resources string
	Templates string
	Output    string
}

// Paths returns the resolved project layout for this configuration.
func (c *Config) Paths() Paths {
	root := DefaultRoot
	if c != nil && c.Root != "" {
		root = c.Root
	}
	return PathsFor(root)
}

// PathsFor resolves the project layout for root.
func PathsFor(root string) Paths {
	return Paths{
		Root:      root,
		Posts:     filepath.Join(root, PostsDir),
		Pages:     filepath.Join(root, PagesDir),
		Resources: filepath.Join(root, ResourcesDir),
		Templates: filepath.Join(root, TemplatesDir),
		Output:    filepath.Join(root, OutputDir),
	}
}

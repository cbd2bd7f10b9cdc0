package metadata

import "github.com/blockprotocol/tsbuild/internal/descriptor"

// Repository is the "repository" field of a package descriptor.
type Repository struct {
	Type      string `yaml:"type"`
	URL       string `yaml:"url"`
	Directory string `yaml:"directory"`
}

// Author is the "author" field of a package descriptor.
type Author struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Common holds the organisational fields written into every generated package.
// It is passed by value; callers cannot change the defaults of other callers.
type Common struct {
	Homepage   string     `yaml:"homepage"`
	Repository Repository `yaml:"repository"`
	License    string     `yaml:"license"`
	Author     Author     `yaml:"author"`
}

// DefaultCommon returns the metadata published with the type-system packages.
func DefaultCommon() Common {
	return Common{
		Homepage: "https://blockprotocol.org",
		Repository: Repository{
			Type:      "git",
			URL:       "https://github.com/blockprotocol/blockprotocol.git",
			Directory: "libs/@blockprotocol/type-system",
		},
		License: "MIT",
		Author: Author{
			Name: "HASH",
			URL:  "https://hash.ai",
		},
	}
}

// Patch converts c into descriptor fields, in the order they are written.
func (c Common) Patch() Patch {
	repo := descriptor.NewObject()
	repo.Set("type", descriptor.String(c.Repository.Type))
	repo.Set("url", descriptor.String(c.Repository.URL))
	repo.Set("directory", descriptor.String(c.Repository.Directory))

	author := descriptor.NewObject()
	author.Set("name", descriptor.String(c.Author.Name))
	author.Set("url", descriptor.String(c.Author.URL))

	return NewPatch().
		With("homepage", descriptor.String(c.Homepage)).
		With("repository", descriptor.ObjectValue(repo)).
		With("license", descriptor.String(c.License)).
		With("author", descriptor.ObjectValue(author))
}

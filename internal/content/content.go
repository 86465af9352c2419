// Package content loads the site content file: homepage slides and the shop
// contact block. Content is read once at startup, like the catalog.
package content

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Slide is one homepage slideshow entry.
type Slide struct {
	Image   string `yaml:"image" json:"image"`
	Alt     string `yaml:"alt" json:"alt,omitempty"`
	Caption string `yaml:"caption" json:"caption,omitempty"`
}

// Contact is the shop contact block shown on the homepage and used for
// outbound order links.
type Contact struct {
	Email    string `yaml:"email" json:"email"`
	Phone    string `yaml:"phone" json:"phone"`
	Address  string `yaml:"address" json:"address,omitempty"`
	Facebook string `yaml:"facebook" json:"facebook,omitempty"`
}

// Site is the loaded site content.
type Site struct {
	Title   string  `yaml:"title" json:"title"`
	Tagline string  `yaml:"tagline" json:"tagline,omitempty"`
	Slides  []Slide `yaml:"slides" json:"slides"`
	Contact Contact `yaml:"contact" json:"contact"`
}

var errNoSlides = errors.New("content: no slides defined")

// LoadFile reads and validates the site content YAML.
func LoadFile(path string) (*Site, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds Site content from raw YAML.
func Parse(raw []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(raw, &site); err != nil {
		return nil, fmt.Errorf("content: parse: %w", err)
	}
	if len(site.Slides) == 0 {
		return nil, errNoSlides
	}
	for i, slide := range site.Slides {
		if strings.TrimSpace(slide.Image) == "" {
			return nil, fmt.Errorf("content: slide %d has no image", i)
		}
	}
	if strings.TrimSpace(site.Contact.Email) == "" {
		return nil, errors.New("content: contact email is required")
	}
	return &site, nil
}

package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuickReplyCount is the number of prompts shown in the sidebar.
const QuickReplyCount = 4

// ErrQuickReplyNotFound is returned for an index outside the quick reply list.
var ErrQuickReplyNotFound = errors.New("quick reply not found")

// Catalog holds the fixed strings the support bot works with.
type Catalog struct {
	Brand        string   `yaml:"brand" json:"brand"`
	Welcome      string   `yaml:"welcome" json:"welcome"`
	QuickReplies []string `yaml:"quick_replies" json:"quickReplies"`
	Responses    []string `yaml:"responses" json:"-"`
}

// Seed provides the built-in BikeBot catalog.
func Seed() Catalog {
	return Catalog{
		Brand:   "BikeBot",
		Welcome: "Hi! I'm BikeBot, your customer service assistant. How can I help you with your bike today?",
		QuickReplies: []string{
			"I need help with my bike repair",
			"Where is my nearest service center?",
			"Check my warranty status",
			"Book a maintenance appointment",
		},
		Responses: []string{
			"I'd be happy to help you with that! Can you tell me more about the specific issue you're experiencing?",
			"Based on your location, I can find the nearest service center for you. Could you share your zip code?",
			"Let me check our warranty database for you. Could you provide your bike's serial number?",
			"I can help you schedule a maintenance appointment. What type of service does your bike need?",
			"That's a great question! For bike repairs, I recommend checking if it's covered under warranty first.",
			"Our service centers are equipped to handle all types of bike maintenance and repairs.",
		},
	}
}

// LoadFile reads a YAML catalog. Fields left empty in the file keep their seed values.
func LoadFile(path string) (Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var loaded Catalog
	if err := yaml.Unmarshal(content, &loaded); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	merged := Seed().merge(loaded)
	if err := merged.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return merged, nil
}

func (c Catalog) merge(override Catalog) Catalog {
	if s := strings.TrimSpace(override.Brand); s != "" {
		c.Brand = s
	}
	if s := strings.TrimSpace(override.Welcome); s != "" {
		c.Welcome = s
	}
	if len(override.QuickReplies) > 0 {
		c.QuickReplies = append([]string(nil), override.QuickReplies...)
	}
	if len(override.Responses) > 0 {
		c.Responses = append([]string(nil), override.Responses...)
	}
	return c
}

// Validate rejects catalogs the chat view cannot work with.
func (c Catalog) Validate() error {
	if strings.TrimSpace(c.Welcome) == "" {
		return errors.New("welcome message is required")
	}
	if len(c.Responses) == 0 {
		return errors.New("at least one canned response is required")
	}
	for i, r := range c.Responses {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("response %d is blank", i)
		}
	}
	if len(c.QuickReplies) != QuickReplyCount {
		return fmt.Errorf("expected %d quick replies, got %d", QuickReplyCount, len(c.QuickReplies))
	}
	for i, q := range c.QuickReplies {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("quick reply %d is blank", i)
		}
	}
	return nil
}

// QuickReply returns the prompt bound to the sidebar button at index.
func (c Catalog) QuickReply(index int) (string, error) {
	if index < 0 || index >= len(c.QuickReplies) {
		return "", fmt.Errorf("%w: index %d", ErrQuickReplyNotFound, index)
	}
	return c.QuickReplies[index], nil
}

// Marshal renders the catalog as YAML.
func (c Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

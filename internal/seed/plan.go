package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rai-team-aiframe/dreamly/internal/validation"

	"gopkg.in/yaml.v3"
)

// DefaultPassword is the login password of every seeded user unless the plan overrides it.
const DefaultPassword = "dreamer2024"

// Account is a fixed user the plan always creates, so demos have known logins.
type Account struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Bio      string `yaml:"bio"`
}

// Plan describes how much demo data to generate.
type Plan struct {
	Users          int       `yaml:"users"`
	PostsPerUser   int       `yaml:"posts_per_user"`
	FollowsPerUser int       `yaml:"follows_per_user"`
	LikesPerPost   int       `yaml:"likes_per_post"`
	Password       string    `yaml:"password"`
	MaxDays        int       `yaml:"max_days"`
	Prompts        []string  `yaml:"prompts"`
	Accounts       []Account `yaml:"accounts"`
}

// DefaultPlan is a small social graph suitable for local development.
func DefaultPlan() Plan {
	return Plan{
		Users:          20,
		PostsPerUser:   3,
		FollowsPerUser: 5,
		LikesPerPost:   4,
		Password:       DefaultPassword,
		MaxDays:        60,
	}
}

// LoadPlan reads a YAML plan from path. Keys missing from the file keep their
// DefaultPlan values; unknown keys are rejected.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read seed plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a YAML plan.
func ParsePlan(data []byte) (Plan, error) {
	plan := DefaultPlan()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, fmt.Errorf("parse seed plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Validate checks counts and the fixed accounts.
func (p Plan) Validate() error {
	if p.Users < 0 || p.PostsPerUser < 0 || p.FollowsPerUser < 0 || p.LikesPerPost < 0 {
		return errors.New("seed plan counts must not be negative")
	}
	if p.Users < len(p.Accounts) {
		return fmt.Errorf("seed plan lists %d accounts but only %d users", len(p.Accounts), p.Users)
	}
	if err := validation.ValidatePassword(p.Password); err != nil {
		return fmt.Errorf("seed plan password: %w", err)
	}

	seen := make(map[string]bool, len(p.Accounts))
	for _, a := range p.Accounts {
		if err := validation.ValidateUsername(a.Username); err != nil {
			return fmt.Errorf("seed account %q: %w", a.Username, err)
		}
		if a.Email != "" {
			if err := validation.ValidateEmail(a.Email); err != nil {
				return fmt.Errorf("seed account %q: %w", a.Username, err)
			}
		}
		if seen[a.Username] {
			return fmt.Errorf("seed account %q listed twice", a.Username)
		}
		seen[a.Username] = true
	}
	return nil
}

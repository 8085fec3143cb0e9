package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "dreamer2024", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Exactly Max Bytes", strings.Repeat("a", 71) + "1", false},
		{"Too Short", "abc1234", true},
		{"Too Long", strings.Repeat("a", 72) + "1", true},
		{"No Digit", "onlyletters", true},
		{"No Letter", "1234567890", true},
		{"Unicode Characters", "Ångström42", false},
		{"Multibyte Over Limit", strings.Repeat("é", 36) + "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Too Short", "tu", true},
		{"Illegal Chars", "user@123", true},
		{"Starts Dash", "-user", true},
		{"Ends Underscore", "user_", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	// 254 chars total: 64 local + @ + 185 domain label + ".com" (4)
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Exactly 254 Characters", emailAt254, false},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Multiple At Symbols", "user@@example.com", true},
		{"Space In Local Part", "user @example.com", true},
		{"Trailing Dot In Domain", "user@example.com.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePrompt(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePrompt("a cat astronaut"))
	assert.Error(t, ValidatePrompt(""))
	assert.Error(t, ValidatePrompt("   \t"))
	assert.NoError(t, ValidatePrompt(strings.Repeat("x", MaxPromptLength)))
	assert.Error(t, ValidatePrompt(strings.Repeat("x", MaxPromptLength+1)))
}

func TestValidateCaptionAndBio(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCaption(""))
	assert.Error(t, ValidateCaption(strings.Repeat("c", MaxCaptionLength+1)))
	assert.NoError(t, ValidateBio(strings.Repeat("b", MaxBioLength)))
	assert.Error(t, ValidateBio(strings.Repeat("b", MaxBioLength+1)))
}

package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPascal(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"user_info", "UserInfo"},
		{"userId", "UserId"},
		{"id", "Id"},
		{"full-admin", "FullAdmin"},
		{"HTTPCode", "HTTPCode"},
		{"a", "A"},
		{"order.checkTotal", "OrderCheckTotal"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Pascal(tt.input))
		})
	}
}

func TestCamel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User", "user"},
		{"UserGroup", "userGroup"},
		{"user_info", "userInfo"},
		{"already", "already"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Camel(tt.input))
		})
	}
}

func TestSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"userGroup", "user_group"},
		{"HTTPCode", "http_code"},
		{"already_snake", "already_snake"},
		{"user2Fa", "user2_fa"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Snake(tt.input))
		})
	}
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "groups", Plural("group"))
	assert.Equal(t, "categories", Plural("category"))
	assert.Equal(t, "Groups", Pascal(Plural("group")))
	assert.Equal(t, "", Plural(""))
}

func TestReceiver(t *testing.T) {
	assert.Equal(t, "u", Receiver("User"))
	assert.Equal(t, "ug", Receiver("UserGroup"))
	assert.Equal(t, "m", Receiver(""))
}

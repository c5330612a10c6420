package builtin

import (
	"time"

	"github.com/google/uuid"
)

// UUID returns a random UUID string.
func UUID(...any) any { return uuid.NewString() }

// Now returns the current UTC time.
func Now(...any) any { return time.Now().UTC() }

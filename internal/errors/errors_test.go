package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "timeout", Kind(ErrTimeout))
	assert.Equal(t, "connectivity", Kind(ErrConnectivity))
	assert.Equal(t, "decision", Kind(fmt.Errorf("parse: %w", ErrDecision)))
	assert.Equal(t, "internal", Kind(fmt.Errorf("something else")))
}

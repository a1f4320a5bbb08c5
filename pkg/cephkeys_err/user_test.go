// pkg/cephkeys_err/user_test.go

package cephkeys_err

import (
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsExpectedUserError(t *testing.T) {
	base := cerr.New("monitor id is required")

	assert.False(t, IsExpectedUserError(nil))
	assert.False(t, IsExpectedUserError(base))
	assert.True(t, IsExpectedUserError(NewExpectedError(base)))
	assert.True(t, IsExpectedUserError(cerr.Wrap(NewExpectedError(base), "run")),
		"the marker must survive wrapping")
}

func TestNewExpectedErrorNil(t *testing.T) {
	assert.NoError(t, NewExpectedError(nil))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "user_error", err: NewExpectedError(cerr.New("bad flag")), want: 0},
		{name: "system_error", err: cerr.New("disk on fire"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

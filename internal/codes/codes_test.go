package codes

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "nil is success",
			err:  nil,
			want: Success,
		},
		{
			name: "config error",
			err:  New(ErrConfig, "db", errors.New("missing source")),
			want: ConfigFailure,
		},
		{
			name: "fetch error",
			err:  New(ErrFetch, "db", errors.New("repository not found")),
			want: FetchFailure,
		},
		{
			name: "build error wrapped again",
			err:  fmt.Errorf("failed to build app: %w", New(ErrBuild, "app", nil)),
			want: BuildFailure,
		},
		{
			name: "load error",
			err:  Errorf(ErrLoad, "", "symbol %s not found", "Build"),
			want: LoadFailure,
		},
		{
			name: "cycle error",
			err:  New(ErrCycle, "a", errors.New("a -> b -> a")),
			want: CycleFailure,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: GeneralFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := New(ErrFetch, "db", errors.New("timeout"))
	assert.Equal(t, "fetch error in db: timeout", err.Error())

	err = New(ErrBuild, "", nil)
	assert.Equal(t, "build error", err.Error())
}

func TestError_UnwrapsCause(t *testing.T) {
	err := New(ErrConfig, "app", fs.ErrNotExist)

	assert.True(t, errors.Is(err, ErrConfig))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, errors.Is(err, ErrFetch))

	var kerr *Error
	assert.True(t, errors.As(err, &kerr))
	assert.Equal(t, "app", kerr.Package)
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		want     string
	}{
		{"success", Success, "Success"},
		{"fetch", FetchFailure, "Dependency could not be fetched"},
		{"cycle", CycleFailure, "Circular dependency"},
		{"unknown", 99, "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorMessage(tt.exitCode))
		})
	}
}

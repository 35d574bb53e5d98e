package netcdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-grid-etl/internal/domain"
)

func TestOpen_MissingFile(t *testing.T) {
	_, err := Opener{}.Open(filepath.Join(t.TempDir(), "absent.nc"), "")
	require.ErrorIs(t, err, domain.ErrUnreadableFile)
}

func TestOpen_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.nc")
	require.NoError(t, os.WriteFile(path, []byte("this is not a netcdf file"), 0o644))

	_, err := Opener{}.Open(path, "")
	require.ErrorIs(t, err, domain.ErrUnreadableFile)
	assert.Contains(t, err.Error(), path)
}

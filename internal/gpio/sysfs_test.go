package gpio

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSysfs creates a sysfs-like tree with the given pins already exported.
func fakeSysfs(t *testing.T, exported ...int) string {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "export"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "unexport"), nil, 0644))
	for _, pin := range exported {
		dir := filepath.Join(base, "gpio"+strconv.Itoa(pin))
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "direction"), []byte("in\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "value"), []byte("0\n"), 0644))
	}
	return base
}

func readAttr(t *testing.T, base string, pin int, attr string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(base, "gpio"+strconv.Itoa(pin), attr))
	require.NoError(t, err)
	return string(data)
}

func TestSysfsDriver_ReadWrite(t *testing.T) {
	base := fakeSysfs(t, 17)
	drv := NewSysfsDriver(base)

	exported, err := drv.Exported(17)
	require.NoError(t, err)
	assert.True(t, exported)

	exported, err = drv.Exported(18)
	require.NoError(t, err)
	assert.False(t, exported)

	dir, err := drv.Direction(17)
	require.NoError(t, err)
	assert.Equal(t, DirectionIn, dir)

	require.NoError(t, drv.SetDirection(17, DirectionOut))
	assert.Equal(t, "out", readAttr(t, base, 17, "direction"))

	require.NoError(t, drv.SetValue(17, High))
	assert.Equal(t, "1", readAttr(t, base, 17, "value"))

	level, err := drv.Value(17)
	require.NoError(t, err)
	assert.Equal(t, High, level)
}

func TestSysfsDriver_ExportWritesPinNumber(t *testing.T) {
	base := fakeSysfs(t)
	drv := NewSysfsDriver(base)
	drv.SetExportWait(20 * time.Millisecond)

	// Nothing creates gpio23 here, so export times out after writing.
	err := drv.Export(23)
	require.Error(t, err)

	data, readErr := os.ReadFile(filepath.Join(base, "export"))
	require.NoError(t, readErr)
	assert.Equal(t, "23", string(data))
}

func TestSysfsDriver_ExportAlreadyExported(t *testing.T) {
	base := fakeSysfs(t, 5)
	drv := NewSysfsDriver(base)
	assert.NoError(t, drv.Export(5))
}

func TestSysfsDriver_ValueGarbage(t *testing.T) {
	base := fakeSysfs(t, 5)
	require.NoError(t, os.WriteFile(filepath.Join(base, "gpio5", "value"), []byte("x"), 0644))

	_, err := NewSysfsDriver(base).Value(5)
	assert.Error(t, err)
}

func TestSysfsDriver_WriteMissingPin(t *testing.T) {
	base := fakeSysfs(t)
	err := NewSysfsDriver(base).SetValue(99, High)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSysfsDriver_BankInitializeIdempotent(t *testing.T) {
	base := fakeSysfs(t, 2, 3)
	bank := NewBank(NewSysfsDriver(base), []int{2, 3}, quietLogger())

	require.NoError(t, bank.Initialize())
	for _, pin := range []int{2, 3} {
		assert.Equal(t, "out", readAttr(t, base, pin, "direction"))
		assert.Equal(t, "1", readAttr(t, base, pin, "value"))
	}

	info, err := os.Stat(filepath.Join(base, "gpio2", "value"))
	require.NoError(t, err)
	before := info.ModTime()

	// Make a rewrite observable even on coarse mtime filesystems.
	past := before.Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(base, "gpio2", "value"), past, past))

	require.NoError(t, bank.Initialize())

	info, err = os.Stat(filepath.Join(base, "gpio2", "value"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(past), "value file must not be rewritten")
}

package cmd

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/riskmap/pkg/codec"
	"github.com/ssargent/riskmap/pkg/config"
	"github.com/ssargent/riskmap/pkg/di"
	"github.com/ssargent/riskmap/pkg/manifest"
	"github.com/ssargent/riskmap/pkg/rkmap"
)

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type env struct {
	dir        string
	configPath string
	dataDir    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	SetContainer(di.NewContainer())
	dir := t.TempDir()
	return &env{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		dataDir:    filepath.Join(dir, "data"),
	}
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", e.configPath, "--data-dir", e.dataDir))
	err := rootCmd.Execute()
	return out.String(), err
}

func sampleMap(display string) *rkmap.Map {
	layer := image.NewRGBA(image.Rect(0, 0, 4, 4))
	layer.Set(1, 2, color.RGBA{G: 200, A: 255})
	return rkmap.New(rkmap.Params{
		Codename:    "abc",
		DisplayName: display,
		Author:      "tester",
		Territories: []rkmap.Territory{
			rkmap.NewTerritory("t1", rkmap.Nucleus{X: 0, Y: 0}),
			rkmap.NewTerritory("t2", rkmap.Nucleus{X: 3, Y: 3}),
		},
		Borders:   []rkmap.Border{{Source: "t1", Target: "t2"}},
		BaseLayer: layer,
		TextLayer: layer,
	})
}

// packSample writes a manifest for sampleMap and packs it.
func (e *env) packSample(t *testing.T, display string) string {
	t.Helper()
	manifestPath, err := manifest.Export(sampleMap(display), filepath.Join(e.dir, "src-"+display))
	require.NoError(t, err)

	out := filepath.Join(e.dir, display+".rkm")
	stdout, err := e.run(t, "pack", manifestPath, "-o", out)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Packed abc (2 territories, 1 borders)")
	return out
}

func TestPackAndInspect(t *testing.T) {
	e := newEnv(t)
	path := e.packSample(t, "v1")

	m, err := codec.DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", m.DisplayName())

	stdout, err := e.run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "MCNM")
	assert.Contains(t, stdout, "CHKS")
	assert.Contains(t, stdout, "checksum valid: true")

	stdout, err = e.run(t, "inspect", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"checksum_valid": true`)
}

func TestInspect_BadChecksum(t *testing.T) {
	e := newEnv(t)
	path := e.packSample(t, "v1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	stdout, err := e.run(t, "inspect", path)
	assert.ErrorIs(t, err, codec.ErrChecksumMismatch)
	assert.Contains(t, stdout, "checksum valid: false")
}

func TestVerify(t *testing.T) {
	e := newEnv(t)
	v1 := e.packSample(t, "v1")
	v2 := e.packSample(t, "v2")

	stdout, err := e.run(t, "verify", v1, v2, "--jobs", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "OK   "+v1)
	assert.Contains(t, stdout, "OK   "+v2)

	_, err = e.run(t, "verify", v1, "--against", v1)
	assert.NoError(t, err)

	stdout, err = e.run(t, "verify", v2, "--against", v1)
	assert.ErrorIs(t, err, errVerifyFailed)
	assert.Contains(t, stdout, `display name "v2", want "v1"`)

	data, err := os.ReadFile(v1)
	require.NoError(t, err)
	data[30] ^= 0x01
	broken := filepath.Join(e.dir, "broken.rkm")
	require.NoError(t, os.WriteFile(broken, data, 0644))

	stdout, err = e.run(t, "verify", v1, broken)
	assert.ErrorIs(t, err, errVerifyFailed)
	assert.Contains(t, stdout, "FAIL "+broken)
	assert.Contains(t, stdout, "integrity")
}

func TestUnpack(t *testing.T) {
	e := newEnv(t)
	path := e.packSample(t, "v1")
	out := filepath.Join(e.dir, "unpacked")

	_, err := e.run(t, "unpack", path, "-o", out)
	require.NoError(t, err)

	m, err := manifest.Load(filepath.Join(out, manifest.ManifestFile))
	require.NoError(t, err)
	assert.NoError(t, sameMap(sampleMap("v1"), m))
}

func TestArchiveCommands(t *testing.T) {
	e := newEnv(t)
	v1 := e.packSample(t, "v1")
	v2 := e.packSample(t, "v2")

	stdout, err := e.run(t, "archive", "put", v1, v2)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, "stored as revision"))

	stdout, err = e.run(t, "archive", "put", v2)
	require.NoError(t, err)
	assert.Contains(t, stdout, "unchanged")

	stdout, err = e.run(t, "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "abc")
	assert.Contains(t, stdout, "v2")

	stdout, err = e.run(t, "archive", "history", "abc")
	require.NoError(t, err)
	assert.Contains(t, stdout, "v1")
	assert.Contains(t, stdout, "v2")

	out := filepath.Join(e.dir, "latest.rkm")
	_, err = e.run(t, "archive", "get", "abc", "-o", out)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	want, err := os.ReadFile(v2)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = e.run(t, "archive", "history", "missing")
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	stdout, err := e.run(t, "init", "--print-keys")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration created")
	assert.Contains(t, stdout, "API key:")

	cfg, err := config.LoadConfig(e.configPath)
	require.NoError(t, err)
	assert.Equal(t, e.dataDir, cfg.DataDir)
	assert.Len(t, cfg.Security.APIKey, 64)
	assert.DirExists(t, e.dataDir)

	stdout, err = e.run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "already exists")
}

func TestServe_RequiresAPIKey(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "serve")
	assert.ErrorIs(t, err, errNoAPIKey)
}

func TestArchive_NilContainer(t *testing.T) {
	e := newEnv(t)
	SetContainer(nil)
	defer SetContainer(di.NewContainer())

	_, err := e.run(t, "archive", "list")
	assert.ErrorIs(t, err, errNoContainer)
}

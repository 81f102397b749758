package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClassSource = `export class TestClass {
	greet(name: string): string {
		return "hello " + name;
	}
}
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "TestClass.ts"), []byte(testClassSource), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "index.d.ts.tpl"),
		[]byte("declare module '<%= o.compiler.name %>';\n"), 0o600))
	return dir
}

func TestBuildCmd_Run(t *testing.T) {
	dir := writeProject(t)

	cmd := &BuildCmd{ProjectFlags: ProjectFlags{Dir: dir, Compress: "none"}}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	data, err := os.ReadFile(filepath.Join(dir, "dist", "MyLib.d.ts"))
	require.NoError(t, err)
	assert.Equal(t, "declare module 'MyLib';\n", string(data))

	_, err = os.Stat(filepath.Join(dir, "dist", "MyLib.js"))
	require.NoError(t, err)
}

func TestBuildCmd_Production(t *testing.T) {
	dir := writeProject(t)

	cmd := &BuildCmd{ProjectFlags: ProjectFlags{Dir: dir, Production: true, Compress: "gzip"}}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	for _, name := range []string{"MyLib.min.js", "MyLib.min.js.gz", "MyLib.d.ts"} {
		_, err := os.Stat(filepath.Join(dir, "dist", name))
		require.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(dir, "dist", "MyLib.js"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildCmd_ProjectFile(t *testing.T) {
	dir := writeProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "umdpack.yaml"),
		[]byte("library: Greeter\noutput_path: build\n"), 0o600))

	cmd := &BuildCmd{ProjectFlags: ProjectFlags{Dir: dir, Compress: "none"}}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))

	_, err := os.Stat(filepath.Join(dir, "build", "Greeter.js"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "build", "Greeter.d.ts"))
	require.NoError(t, err)
}

func TestBuildCmd_MissingEntry(t *testing.T) {
	dir := t.TempDir()

	cmd := &BuildCmd{ProjectFlags: ProjectFlags{Dir: dir, Compress: "none"}}
	err := cmd.Run(context.Background(), &Globals{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build failed")
}

func TestProjectFlags_Parse(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		production bool
		compress   string
	}{
		{name: "defaults", args: []string{"build"}, compress: "none"},
		{name: "short production flag", args: []string{"build", "-p"}, production: true, compress: "none"},
		{name: "long production flag", args: []string{"build", "--production"}, production: true, compress: "none"},
		{name: "compress", args: []string{"build", "--compress", "zstd"}, compress: "zstd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cli struct {
				Build BuildCmd `cmd:""`
			}
			parser, err := kong.New(&cli, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
			require.NoError(t, err)

			_, err = parser.Parse(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.production, cli.Build.Production)
			assert.Equal(t, tt.compress, cli.Build.Compress)
			assert.Equal(t, ".", cli.Build.Dir)
		})
	}
}

func TestProjectFlags_RejectsUnknownCompression(t *testing.T) {
	var cli struct {
		Build BuildCmd `cmd:""`
	}
	parser, err := kong.New(&cli, kong.Exit(func(int) {}))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"build", "--compress", "brotli"})
	require.Error(t, err)
}

func TestServeCmd_Handler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MyLib.js"), []byte("var MyLib;"), 0o600))

	cmd := &ServeCmd{CORSOrigins: []string{"*"}}
	handler := cmd.handler(dir, zerolog.Nop())

	r := httptest.NewRequest(http.MethodGet, "/MyLib.js", nil)
	r.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "var MyLib;", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestServeCmd_RunStopsOnCancel(t *testing.T) {
	dir := writeProject(t)

	cmd := &ServeCmd{
		ProjectFlags: ProjectFlags{Dir: dir, Compress: "none"},
		Listen:       "127.0.0.1:0",
		CORSOrigins:  []string{"*"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Run(ctx, &Globals{})
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "dist", "MyLib.d.ts"))
		return err == nil
	}, 10*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}

	// the watcher has exited, so nothing writes to the output path after Run returns
	entries, err := os.ReadDir(filepath.Join(dir, "dist"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

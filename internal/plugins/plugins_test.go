package plugins

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/umdpack/internal/assets"
)

func newCompiler(t *testing.T, dir string, plugins ...assets.Plugin) *assets.Compiler {
	t.Helper()

	cfg := assets.DefaultConfig()
	cfg.Context = dir
	cfg.Output.Path = filepath.Join(dir, "dist")
	cfg.Output.Filename = "MyLib.js"
	cfg.Output.Library = "MyLib"
	cfg.Plugins = plugins

	c, err := assets.NewCompiler("X", &cfg, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func newCompilation(names ...string) *assets.Compilation {
	compilation := assets.NewCompilation()
	for _, name := range names {
		compilation.Assets.Set(name, assets.StringSource("content of "+name))
	}
	return compilation
}

func TestSkipAssets_SetDifference(t *testing.T) {
	names := []string{"MyLib.js", "MyLib.js.map", "extra.txt", "meta.json", "MyLib.d.ts"}

	tests := []struct {
		name     string
		matcher  Matcher
		expected []string
	}{
		{
			name:     "not library prefix",
			matcher:  NotPrefix("MyLib"),
			expected: []string{"MyLib.js", "MyLib.js.map", "MyLib.d.ts"},
		},
		{
			name:     "lookahead pattern",
			matcher:  MustCompileRegexp(`^(?!MyLib)`),
			expected: []string{"MyLib.js", "MyLib.js.map", "MyLib.d.ts"},
		},
		{
			name:     "standard library regexp",
			matcher:  regexp.MustCompile(`\.map$`),
			expected: []string{"MyLib.js", "extra.txt", "meta.json", "MyLib.d.ts"},
		},
		{
			name:     "matches nothing",
			matcher:  regexp.MustCompile(`\.css$`),
			expected: names,
		},
		{
			name:     "matches everything",
			matcher:  regexp.MustCompile(`.*`),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := newCompilation(names...).Assets
			skipped := NewSkipAssets(tt.matcher).Filter(set)

			require.Equal(t, tt.expected, nilIfEmpty(set.Names()))
			require.Equal(t, len(names)-len(tt.expected), len(skipped))
			for _, name := range skipped {
				require.True(t, tt.matcher.MatchString(name))
			}
		})
	}
}

func TestSkipAssets_Idempotent(t *testing.T) {
	set := newCompilation("MyLib.js", "extra.txt", "MyLib.d.ts").Assets
	p := NewSkipAssets(NotPrefix("MyLib"))

	require.Equal(t, []string{"extra.txt"}, p.Filter(set))
	before := set.Names()

	require.Empty(t, p.Filter(set))
	require.Equal(t, before, set.Names())
}

func TestSkipAssets_LeavesContentsUntouched(t *testing.T) {
	set := newCompilation("MyLib.js", "extra.txt").Assets
	NewSkipAssets(NotPrefix("MyLib")).Filter(set)

	asset, ok := set.Get("MyLib.js")
	require.True(t, ok)
	require.Equal(t, "content of MyLib.js", asset.Source())
}

func TestRegexp_EscapesPrefix(t *testing.T) {
	re := NotPrefix("my.lib")
	require.False(t, re.MatchString("my.lib.js"))
	require.True(t, re.MatchString("myxlib.js"))
	require.Equal(t, `^(?!my\.lib)`, re.String())

	_, err := CompileRegexp(`(`)
	require.Error(t, err)
}

func TestNewTemplate_DefaultInput(t *testing.T) {
	p := NewTemplate("Lib.d.ts", "")
	require.Equal(t, "Lib.d.ts.tpl", p.Input())
	require.Equal(t, "Lib.d.ts", p.Output())

	p = NewTemplate("index.d.ts.tpl", "MyLib.d.ts")
	require.Equal(t, "index.d.ts.tpl", p.Input())
	require.Equal(t, "MyLib.d.ts", p.Output())
}

func TestTemplate_Emit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Lib.d.ts.tpl"), []byte("Hello <%= o.compiler.name %>"), 0o600))

	c := newCompiler(t, dir, NewTemplate("Lib.d.ts", ""))
	compilation := newCompilation()

	require.NoError(t, c.Emit(context.Background(), compilation))

	asset, ok := compilation.Assets.Get("Lib.d.ts")
	require.True(t, ok)
	require.Equal(t, "Hello X", asset.Source())
	require.Equal(t, len("Hello X"), asset.Size())
}

func TestTemplate_LogsRenderedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Lib.d.ts.tpl"), []byte("declare const Lib: any;"), 0o600))

	var buf bytes.Buffer
	cfg := assets.DefaultConfig()
	cfg.Context = dir
	cfg.Output.Path = filepath.Join(dir, "dist")
	cfg.Output.Filename = "MyLib.js"
	cfg.Output.Library = "MyLib"
	cfg.Plugins = []assets.Plugin{NewTemplate("Lib.d.ts", "")}

	c, err := assets.NewCompiler("X", &cfg, zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.NoError(t, err)

	require.NoError(t, c.Emit(context.Background(), newCompilation()))

	assert.Contains(t, buf.String(), `"message":"Rendered template"`)
	assert.Contains(t, buf.String(), `"file":"Lib.d.ts"`)
	assert.Contains(t, buf.String(), filepath.Join(dir, "Lib.d.ts.tpl"))
}

func TestTemplate_CompilationContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.d.ts.tpl"),
		[]byte(`// <%= o.compilation.hash %> <%= o.compilation.assetNames().join(",") %> <%= o.compiler.options.output.library %>`), 0o600))

	c := newCompiler(t, dir, NewTemplate("index.d.ts.tpl", "MyLib.d.ts"))
	compilation := newCompilation("MyLib.js")
	compilation.Hash = "abc"

	require.NoError(t, c.Emit(context.Background(), compilation))

	asset, ok := compilation.Assets.Get("MyLib.d.ts")
	require.True(t, ok)
	require.Equal(t, "// abc MyLib.js MyLib", asset.Source())
}

func TestTemplate_MissingFile(t *testing.T) {
	dir := t.TempDir()
	c := newCompiler(t, dir, NewTemplate("Lib.d.ts", ""))
	compilation := newCompilation("MyLib.js")

	err := c.Emit(context.Background(), compilation)
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.False(t, compilation.Assets.Has("Lib.d.ts"))
	require.Equal(t, []string{"MyLib.js"}, compilation.Assets.Names())
}

func TestTemplate_LastWriteWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.tpl"), []byte("first"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.tpl"), []byte("second"), 0o600))

	c := newCompiler(t, dir, NewTemplate("a.tpl", "MyLib.d.ts"), NewTemplate("b.tpl", "MyLib.d.ts"))
	compilation := newCompilation()

	require.NoError(t, c.Emit(context.Background(), compilation))

	asset, _ := compilation.Assets.Get("MyLib.d.ts")
	require.Equal(t, "second", asset.Source())
	require.Equal(t, 1, compilation.Assets.Len())
}

func TestEmitChain_TemplateThenSkip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.d.ts.tpl"), []byte("declare const MyLib: any;\n"), 0o600))

	c := newCompiler(t, dir,
		NewTemplate("index.d.ts.tpl", "MyLib.d.ts"),
		NewSkipAssets(NotPrefix("MyLib")),
	)
	compilation := newCompilation("MyLib.js", "extra.txt")

	require.NoError(t, c.Emit(context.Background(), compilation))
	require.Equal(t, []string{"MyLib.js", "MyLib.d.ts"}, compilation.Assets.Names())
}

func TestCompress(t *testing.T) {
	tests := []struct {
		algorithm Algorithm
		name      string
		decode    func(t *testing.T, data []byte) []byte
	}{
		{
			algorithm: Gzip,
			name:      "MyLib.js.gz",
			decode: func(t *testing.T, data []byte) []byte {
				r, err := gzip.NewReader(bytes.NewReader(data))
				require.NoError(t, err)
				out, err := io.ReadAll(r)
				require.NoError(t, err)
				return out
			},
		},
		{
			algorithm: Zstd,
			name:      "MyLib.js.zst",
			decode: func(t *testing.T, data []byte) []byte {
				dec, err := zstd.NewReader(nil)
				require.NoError(t, err)
				defer dec.Close()
				out, err := dec.DecodeAll(data, nil)
				require.NoError(t, err)
				return out
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			p, err := NewCompress(tt.algorithm)
			require.NoError(t, err)

			c := newCompiler(t, t.TempDir(), p)
			compilation := newCompilation("MyLib.js", "MyLib.d.ts")

			require.NoError(t, c.Emit(context.Background(), compilation))
			require.Equal(t, []string{"MyLib.js", "MyLib.d.ts", tt.name}, compilation.Assets.Names())

			asset, _ := compilation.Assets.Get(tt.name)
			assert.Equal(t, "content of MyLib.js", string(tt.decode(t, []byte(asset.Source()))))
		})
	}
}

func TestCompress_MinSize(t *testing.T) {
	p, err := NewCompress(Gzip)
	require.NoError(t, err)

	c := newCompiler(t, t.TempDir(), p.WithMinSize(1024))
	compilation := newCompilation("MyLib.js")

	require.NoError(t, c.Emit(context.Background(), compilation))
	require.Equal(t, []string{"MyLib.js"}, compilation.Assets.Names())
}

func TestCompress_UnknownAlgorithm(t *testing.T) {
	_, err := NewCompress("brotli")
	require.Error(t, err)
}

func TestMinify(t *testing.T) {
	build := func(plugins ...assets.Plugin) int {
		dir := t.TempDir()
		source := "export class TestClass {\n  greet(name: string): string {\n    const greeting = 'hello ' + name;\n    return greeting;\n  }\n}\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.ts"), []byte(source), 0o600))

		c := newCompiler(t, dir, plugins...)
		stats, err := c.Run(context.Background())
		require.NoError(t, err)

		for _, asset := range stats.Assets {
			if asset.Name == "MyLib.js" {
				return asset.Size
			}
		}
		t.Fatal("bundle not emitted")
		return 0
	}

	require.Less(t, build(NewMinify()), build())
}

func nilIfEmpty(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	return names
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/calavorn/realmmap/pkg/cache"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/layers"
)

const realmJSON = `{
  "k_a": {"name": "Kingdom A", "rgb": "10,0,0", "subjects": ["d_b"], "size": 5, "subject_size": 3},
  "d_b": {"name": "Duchy B", "rgb": "20,0,0", "overlord": "k_a", "subjects": ["c_c", "c_d"], "size": 3},
  "c_c": {"name": "County C", "rgb": "30,0,0", "overlord": "d_b", "size": 1},
  "c_d": {"name": "County D", "rgb": "40,0,0", "overlord": "d_b", "size": 2},
  "k_x": {"name": "Kingdom X", "rgb": "50,0,0", "subjects": ["c_z"], "size": 4},
  "c_z": {"name": "County Z", "rgb": "60,0,0", "overlord": "k_x", "size": 4}
}`

const brokenJSON = `{
  "k_a": {"name": "Kingdom A", "rgb": "10,0,0"},
  "c_c": {"name": "County C", "rgb": "10,0,0", "overlord": "ghost"}
}`

// testEnv writes the tier fixtures and a config file pointing at them. It
// returns the config path.
func testEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := writeTiers(t)
	cfg := filepath.Join(t.TempDir(), "realmmap.toml")
	toml := "[source]\nkind = \"dir\"\ndir = " + `"` + filepath.ToSlash(dir) + `"` + "\n\n[cache]\nbackend = \"none\"\n"
	if err := os.WriteFile(cfg, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

// writeTiers writes a county tier (a 4×2 base map: c_c, c_d, c_z,
// background in both rows) and a broken duchy tier into a fresh directory.
func writeTiers(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("county.json", []byte(realmJSON))
	write("duchy.json", []byte(brokenJSON))

	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := range 2 {
		for x, r := range []uint8{30, 40, 60} {
			img.SetNRGBA(x, y, color.NRGBA{R: r, A: 255})
		}
		img.SetNRGBA(3, y, color.NRGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	write("county_map.png", buf.Bytes())
	return dir
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--config", cfg))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"explore", "click", "inspect", "validate", "graph", "assets", "serve", "import", "cache", "config", "version", "completion"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing command %q in %v", want, names)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing persistent --config flag")
	}
}

func TestInspect(t *testing.T) {
	cfg := testEnv(t)

	out, err := run(t, cfg, "inspect", "county", "--json")
	if err != nil {
		t.Fatalf("inspect county: %v", err)
	}
	var tier tierReport
	if err := json.Unmarshal([]byte(out), &tier); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if tier.Regions != 6 || !slices.Equal(tier.Realms, []string{"k_a", "k_x"}) || len(tier.Issues) != 0 {
		t.Errorf("tier report = %+v", tier)
	}
	if tier.Layers.Collapsed != 2 || tier.Layers.Nested != 0 {
		t.Errorf("default layers = %+v", tier.Layers)
	}

	out, err = run(t, cfg, "inspect", "county", "d_b", "--json")
	if err != nil {
		t.Fatalf("inspect county d_b: %v", err)
	}
	var reg regionReport
	if err := json.Unmarshal([]byte(out), &reg); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if reg.Title != "Duchy B" || reg.Standing != "Subject of Kingdom A" || reg.Depth != 1 {
		t.Errorf("region report = %+v", reg)
	}
	if !slices.Equal(reg.Chain, []string{"d_b", "k_a"}) || !slices.Equal(reg.SubjectIDs, []string{"c_c", "c_d"}) {
		t.Errorf("chain = %v, subjects = %v", reg.Chain, reg.SubjectIDs)
	}

	out, err = run(t, cfg, "inspect", "county", "c_c")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Kingdom A → Duchy B → County C") {
		t.Errorf("inspect output missing hierarchy:\n%s", out)
	}
	if reg.Descendants != nil {
		t.Errorf("descendants listed without --descendants: %v", reg.Descendants)
	}

	out, err = run(t, cfg, "inspect", "county", "k_a", "--descendants", "--json")
	if err != nil {
		t.Fatal(err)
	}
	reg = regionReport{}
	if err := json.Unmarshal([]byte(out), &reg); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !slices.Equal(reg.Descendants, []string{"d_b", "c_c", "c_d"}) {
		t.Errorf("descendants = %v", reg.Descendants)
	}

	out, err = run(t, cfg, "inspect", "county", "k_a", "--descendants")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Levels below") || !strings.Contains(out, "County D") {
		t.Errorf("inspect --descendants output:\n%s", out)
	}
}

func TestMissingAssetsRejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "county"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "county", "10_0_0.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(dir), "outside.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	a := layers.Assets{OverlayBase: "/data/regions"}
	paths := []string{"/data/regions/county/10_0_0.png", "/data/regions/../outside.png"}

	got := missingAssets(a, dir, paths)
	if !slices.Equal(got, []string{"/data/regions/../outside.png"}) {
		t.Errorf("missingAssets() = %v", got)
	}
}

func TestInspectErrors(t *testing.T) {
	cfg := testEnv(t)
	tests := []struct {
		name string
		args []string
		code errs.Code
	}{
		{"unknown tier", []string{"inspect", "barony"}, errs.ErrCodeTierNotFound},
		{"missing tier data", []string{"inspect", "empire"}, errs.ErrCodeTierNotFound},
		{"unknown region", []string{"inspect", "county", "nope"}, errs.ErrCodeRegionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, cfg, tt.args...)
			if !errs.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := testEnv(t)

	out, err := run(t, cfg, "validate", "county")
	if err != nil {
		t.Fatalf("validate county: %v", err)
	}
	if !strings.Contains(out, "consistent") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, cfg, "validate", "duchy")
	if !errs.Is(err, errs.ErrCodeInvalidDataset) {
		t.Fatalf("validate duchy error = %v, want INVALID_DATASET", err)
	}
	for _, want := range []string{"missing_overlord", "duplicate_color", "ghost"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClick(t *testing.T) {
	cfg := testEnv(t)

	out, err := run(t, cfg, "click", "county", "0.5,0.5", "0.5,0.5", "0.5,1.5", "2.5,0.5", "3.5,0.5", "--json")
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	var steps []clickStep
	if err := json.Unmarshal([]byte(out), &steps); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	want := []struct {
		hovered, target string
		reset, changed  bool
		stack           []string
	}{
		{"k_a", "k_a", true, true, []string{"k_a"}},
		{"d_b", "d_b", false, true, []string{"k_a", "d_b"}},
		{"c_c", "", false, false, []string{"k_a", "d_b"}},
		{"k_x", "k_x", true, true, []string{"k_x"}},
		{"", "", false, false, []string{"k_x"}},
	}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(steps), len(want))
	}
	for i, w := range want {
		s := steps[i]
		if s.Hovered != w.hovered || s.Target != w.target || s.Reset != w.reset || s.Changed != w.changed || !slices.Equal(s.Stack, w.stack) {
			t.Errorf("step %d = %+v, want %+v", i+1, s, w)
		}
	}
	if !slices.Equal(steps[1].Breadcrumbs, []string{"Kingdom A", "Duchy B"}) {
		t.Errorf("breadcrumbs = %v", steps[1].Breadcrumbs)
	}
}

func TestClickByRegionAndScaled(t *testing.T) {
	cfg := testEnv(t)

	out, err := run(t, cfg, "click", "county", "@k_x", "170,10", "--width", "400", "--height", "200")
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if !strings.Contains(out, "reset, then drilled into k_x") {
		t.Errorf("first step missing:\n%s", out)
	}
	// 170 of 400 is native column 1: c_d, shown under k_a.
	if !strings.Contains(out, "170,10 hover") || !strings.Contains(out, "reset, then drilled into k_a") {
		t.Errorf("second step missing:\n%s", out)
	}

	if _, err := run(t, cfg, "click", "county", "nonsense"); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("bad point error = %v, want INVALID_INPUT", err)
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    point
		wantErr bool
	}{
		{"1,2", point{X: 1, Y: 2}, false},
		{" 3.5 , 4 ", point{X: 3.5, Y: 4}, false},
		{"@d_b", point{Region: "d_b"}, false},
		{"@", point{}, true},
		{"1", point{}, true},
		{"a,b", point{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePoint(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parsePoint(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAssets(t *testing.T) {
	cfg := testEnv(t)

	out, err := run(t, cfg, "assets", "county", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	if err := json.Unmarshal([]byte(out), &paths); err != nil {
		t.Fatal(err)
	}
	// Six collapsed pairs plus nested pairs for k_a, d_b and k_x.
	if len(paths) != 18 || !slices.Contains(paths, "/data/regions/county/20_0_0_nested_hover.png") {
		t.Errorf("paths = %v", paths)
	}

	assetDir := t.TempDir()
	for _, p := range paths[1:] {
		full := filepath.Join(assetDir, filepath.FromSlash(strings.TrimPrefix(p, "/data/regions/")))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out, err = run(t, cfg, "assets", "county", "--check", assetDir, "--json")
	if !errs.Is(err, errs.ErrCodeNotFound) {
		t.Fatalf("check error = %v, want NOT_FOUND", err)
	}
	var missing []string
	if err := json.Unmarshal([]byte(out), &missing); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(missing, paths[:1]) {
		t.Errorf("missing = %v, want %v", missing, paths[:1])
	}
}

func TestGraphDOT(t *testing.T) {
	cfg := testEnv(t)

	out, err := run(t, cfg, "graph", "county", "--root", "k_a")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "digraph G {") || !strings.Contains(out, `"d_b" -> "c_d";`) || strings.Contains(out, "k_x") {
		t.Errorf("graph output:\n%s", out)
	}

	if _, err := run(t, cfg, "graph", "county", "-f", "gif"); err == nil {
		t.Error("graph -f gif error = nil")
	}
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	cfg := testEnv(t)
	t.Setenv("REALMMAP_REDIS_PASSWORD", "hunter2")

	out, err := run(t, cfg, "config")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "hunter2") || !strings.Contains(out, `kind = "dir"`) {
		t.Errorf("config output:\n%s", out)
	}
	if !strings.Contains(out, "matched by region id") {
		t.Errorf("config output does not name the stack key:\n%s", out)
	}

	t.Setenv("REALMMAP_STACK_KEY", "name")
	out, err = run(t, cfg, "config")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `stack_key = "name"`) || !strings.Contains(out, "matched by region name") {
		t.Errorf("config output with name key:\n%s", out)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, testEnv(t), "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil || info["version"] == "" {
		t.Errorf("version output = %q, err = %v", out, err)
	}
}

func TestCacheCommands(t *testing.T) {
	cfg := testEnv(t)
	want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName)

	out, err := run(t, cfg, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", strings.TrimSpace(out), want)
	}

	out, err = run(t, cfg, "cache", "clear")
	if err != nil || !strings.Contains(out, "Caching is disabled") {
		t.Errorf("cache clear with no cache = %q, %v", out, err)
	}

	fileCfg := filepath.Join(t.TempDir(), "file.toml")
	if err := os.WriteFile(fileCfg, []byte("[cache]\nbackend = \"file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := cache.NewFileCache(want)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(context.Background(), "dataset:x:county", []byte("{}"), 0); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, fileCfg, "cache", "clear")
	if err != nil || !strings.Contains(out, "Cleared the file cache") {
		t.Errorf("cache clear = %q, %v", out, err)
	}
	if _, ok, _ := c.Get(context.Background(), "dataset:x:county"); ok {
		t.Error("entry survived cache clear")
	}
}

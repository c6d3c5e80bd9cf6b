package installer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/packhub/packhub/internal/cache"
	"github.com/packhub/packhub/internal/digest"
	"github.com/packhub/packhub/internal/modpack"
)

func TestInstallNarratesMirrorDecisions(t *testing.T) {
	payload := []byte("jar-contents-v1")
	fetcher := newStubFetcher()
	fetcher.serve("https://bad.example/a.jar", []byte("jar-contents-v2"))
	fetcher.serve("https://short.example/a.jar", payload[:4])
	fetcher.serve("https://good.example/a.jar", payload)

	inst, _ := newTestInstaller(t, fetcher)
	req := Request{
		Manifest: &modpack.Manifest{Files: []modpack.PackFile{
			packFile("mods/a.jar", payload,
				"https://missing.example/a.jar",
				"https://bad.example/a.jar",
				"https://short.example/a.jar",
				"https://good.example/a.jar"),
		}},
		Destination: t.TempDir(),
		Side:        modpack.SideClient,
	}

	sink := &recordingSink{}
	res, err := inst.Install(context.Background(), req, sink)
	if err != nil || res.Stats.Installed != 1 {
		t.Fatalf("install failed: res=%+v err=%v", res, err)
	}

	cases := []struct {
		name  string
		parts []string
	}{
		{"fetch error", []string{"Mirror https://missing.example/a.jar failed", "mods/a.jar"}},
		{"attempt", []string{"Downloading mods/a.jar", "https://bad.example/a.jar"}},
		{"hash mismatch", []string{"Rejected mods/a.jar from https://bad.example/a.jar", "sha1 mismatch"}},
		{"size mismatch", []string{"Rejected mods/a.jar from https://short.example/a.jar", "received 4 bytes, declared 15"}},
		{"verified", []string{"Verified mods/a.jar", "sha1", "sha512"}},
		{"accepted", []string{"Downloaded mods/a.jar from https://good.example/a.jar"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !sink.hasLine(tc.parts...) {
				t.Fatalf("no log line with %q in %q", tc.parts, sink.lines)
			}
		})
	}

	rerun := &recordingSink{}
	if _, err := inst.Install(context.Background(), req, rerun); err != nil {
		t.Fatalf("second install: %v", err)
	}
	if !rerun.hasLine("Skipping mods/a.jar: already installed") {
		t.Fatalf("second run should narrate the present file, got %q", rerun.lines)
	}
}

func TestInstallKeepsOverrideScopeRoot(t *testing.T) {
	inst, _ := newTestInstaller(t, newStubFetcher())
	dest := t.TempDir()
	manifest := &modpack.Manifest{Overrides: memArchive{
		memEntry{name: "global/./", dir: true},
		memEntry{name: "global/options.txt", body: "fov:70"},
	}}

	res, err := inst.Install(context.Background(), Request{Manifest: manifest, Destination: dest, Side: modpack.SideClient}, nil)
	if err != nil || res.Status != StatusSucceeded {
		t.Fatalf("scope root entry must not abort the job: res=%+v err=%v", res, err)
	}
	if got := readFile(t, filepath.Join(dest, "options.txt")); got != "fov:70" {
		t.Fatalf("unexpected override content %q", got)
	}
}

func TestInstallOverallProgressSpansFilesAndOverrides(t *testing.T) {
	payload := []byte("progress")
	fetcher := newStubFetcher()
	fetcher.serve("https://cdn.example/a.jar", payload)
	inst, _ := newTestInstaller(t, fetcher)

	manifest := &modpack.Manifest{
		Files: []modpack.PackFile{packFile("mods/a.jar", payload, "https://cdn.example/a.jar")},
		Overrides: memArchive{
			memEntry{name: "global/config/", dir: true},
			memEntry{name: "global/config/a.txt", body: "a"},
			memEntry{name: "client/b.txt", body: "b"},
			memEntry{name: "server/c.txt", body: "c"},
		},
	}
	sink := &recordingSink{}
	if _, err := inst.Install(context.Background(), Request{Manifest: manifest, Destination: t.TempDir(), Side: modpack.SideClient}, sink); err != nil {
		t.Fatalf("install: %v", err)
	}

	want := [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}}
	if len(sink.overall) != len(want) {
		t.Fatalf("overall progress = %v, want %v", sink.overall, want)
	}
	for i := range want {
		if sink.overall[i] != want[i] {
			t.Fatalf("overall progress = %v, want %v", sink.overall, want)
		}
	}
}

func TestInstallWarnsWhenPrimaryHashSubstituted(t *testing.T) {
	payload := []byte("substituted")
	fetcher := newStubFetcher()
	fetcher.serve("https://cdn.example/a.jar", payload)
	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	logger, hook := test.NewNullLogger()
	inst := New(store, fetcher, logger)

	file := modpack.PackFile{
		Path: "a.jar",
		Size: int64(len(payload)),
		Hashes: []digest.Expected{
			{Algorithm: "x-custom", Digest: []byte{0x01}},
			{Algorithm: "sha1", Digest: sha1Of(payload)},
		},
		Downloads: []string{"https://cdn.example/a.jar"},
	}
	sink := &recordingSink{}
	res, err := inst.Install(context.Background(), Request{Manifest: &modpack.Manifest{Files: []modpack.PackFile{file}}, Destination: t.TempDir()}, sink)
	if err != nil || res.Stats.Installed != 1 {
		t.Fatalf("install failed: res=%+v err=%v", res, err)
	}

	found := false
	for _, entry := range hook.AllEntries() {
		if entry.Message == "install_primary_hash_substituted" {
			found = entry.Level == logrus.WarnLevel && entry.Data["used"] == "sha1" && entry.Data["declared"] == "x-custom"
		}
	}
	if !found {
		t.Fatalf("expected a warn entry for the substituted primary hash")
	}
	if !sink.hasLine("a.jar", "x-custom", "sha1") {
		t.Fatalf("sink should be told about the substitution, got %q", sink.lines)
	}
	if _, ok := store.Locate(cache.Key(sha1Of(payload)), file.Size); !ok {
		t.Fatalf("blob should be cached under the sha1 key")
	}
}

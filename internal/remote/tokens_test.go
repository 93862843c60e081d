package remote

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileTokenStore_SetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.dat")
	store, err := OpenFileTokenStore(path)
	if err != nil {
		t.Fatalf("OpenFileTokenStore() error = %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Token("10.0.0.5"); err != nil || ok {
		t.Fatalf("Token() on empty store = %v, %v", ok, err)
	}

	if err := store.SetToken("10.0.0.5", "111"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetToken("uuid:0ab1-22", "222"); err != nil {
		t.Fatal(err)
	}

	for id, want := range map[string]string{"10.0.0.5": "111", "uuid:0ab1-22": "222"} {
		got, ok, err := store.Token(id)
		if err != nil || !ok || got != want {
			t.Errorf("Token(%q) = %q, %v, %v; want %q", id, got, ok, err, want)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "10.0.0.5:111\nuuid:0ab1-22:222" {
		t.Errorf("file content = %q", data)
	}
}

func TestFileTokenStore_ReplaceRewritesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.dat")
	if err := os.WriteFile(path, []byte("a:long-first-token\nb:2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := OpenFileTokenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.SetToken("a", "1"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "a:1\nb:2" {
		t.Errorf("file content = %q, want no stale bytes", data)
	}
}

func TestFileTokenStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.dat")
	store, err := OpenFileTokenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	store.SetToken("tv", "abc")
	store.Close()

	store, err = OpenFileTokenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if got, ok, _ := store.Token("tv"); !ok || got != "abc" {
		t.Errorf("Token() after reopen = %q, %v", got, ok)
	}
}

func TestFileTokenStore_RejectsBadInput(t *testing.T) {
	store, err := OpenFileTokenStore(filepath.Join(t.TempDir(), "token.dat"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.SetToken("", "x"); err == nil {
		t.Error("SetToken with empty id should fail")
	}
	if err := store.SetToken("tv", "a\nb"); err == nil {
		t.Error("SetToken with a newline should fail")
	}
	if err := store.SetToken("uuid:0ab1-22", "ab:cd"); err == nil {
		t.Error("SetToken with a colon in the token should fail")
	}
}

func TestFileTokenStore_Closed(t *testing.T) {
	store, err := OpenFileTokenStore(filepath.Join(t.TempDir(), "token.dat"))
	if err != nil {
		t.Fatal(err)
	}
	store.Close()
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := store.SetToken("tv", "x"); err == nil {
		t.Error("SetToken on closed store should fail")
	}
}

func TestSplitTokenLine(t *testing.T) {
	tests := []struct {
		line      string
		id, token string
		ok        bool
	}{
		{"10.0.0.5:123", "10.0.0.5", "123", true},
		{"uuid:a:b:tok", "uuid:a:b", "tok", true},
		{"tv:", "tv", "", true},
		{"notoken", "", "", false},
		{":token", "", "", false},
	}
	for _, tt := range tests {
		id, token, ok := splitTokenLine(tt.line)
		if id != tt.id || token != tt.token || ok != tt.ok {
			t.Errorf("splitTokenLine(%q) = %q, %q, %v", tt.line, id, token, ok)
		}
	}
}

func TestBoltTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")

	store, err := OpenTokenStore(path)
	if err != nil {
		t.Fatalf("OpenTokenStore() error = %v", err)
	}
	if _, ok := store.(*BoltTokenStore); !ok {
		t.Fatalf("OpenTokenStore(%q) = %T, want *BoltTokenStore", path, store)
	}

	if _, ok, err := store.Token("tv"); err != nil || ok {
		t.Fatalf("Token() on empty store = %v, %v", ok, err)
	}
	if err := store.SetToken("tv", "first"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetToken("tv", "second"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = OpenBoltTokenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if got, ok, _ := store.Token("tv"); !ok || got != "second" {
		t.Errorf("Token() = %q, %v; want second", got, ok)
	}
}

func TestOpenTokenStore_FileByDefault(t *testing.T) {
	store, err := OpenTokenStore(filepath.Join(t.TempDir(), "token.dat"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, ok := store.(*FileTokenStore); !ok {
		t.Errorf("OpenTokenStore() = %T, want *FileTokenStore", store)
	}
}

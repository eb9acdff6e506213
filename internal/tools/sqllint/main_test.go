package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLintArtifactQueries(t *testing.T) {
	vs, err := lint([]string{filepath.Join("..", "..", "sqlinline")})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("violations: %+v", vs)
	}
}

func TestLintFindsProblems(t *testing.T) {
	dir := t.TempDir()
	src := "package q\n\n" +
		"const QNoMarker = `select 1;`\n\n" +
		"const QFirst = `--sql 11111111-2222-3333-4444-555555555555\nselect 2;`\n\n" +
		"const QReused = `--sql 11111111-2222-3333-4444-555555555555\ndelete from t;`\n\n" +
		"const Label = `not a query`\n"
	if err := os.WriteFile(filepath.Join(dir, "q.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	vs, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(vs) != 2 {
		t.Fatalf("violations = %+v", vs)
	}
	if vs[0].name != "QNoMarker" || !strings.Contains(vs[0].message, "missing") {
		t.Fatalf("first = %+v", vs[0])
	}
	if vs[1].name != "QReused" || !strings.Contains(vs[1].message, "QFirst") {
		t.Fatalf("second = %+v", vs[1])
	}
}

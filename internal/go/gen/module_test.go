package gen

import (
	"os"
	"testing"

	"chainkit/abitool/internal/testutil"
)

func TestPackagePath(t *testing.T) {
	root := testutil.Path(".")
	got, err := PackagePath(root)
	if err != nil {
		t.Error(err)
	}
	want := "chainkit/abitool/internal/go/gen"
	if got != want {
		t.Errorf("PackagePath(%q): got %s, expected %s", root, got, want)
	}

	tmp := os.TempDir()
	_, err = PackagePath(tmp)
	if err == nil {
		t.Errorf("PackagePath(%q): expected error, got nil", tmp)
	}
}
